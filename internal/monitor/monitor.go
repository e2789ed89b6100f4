//go:build linux
// +build linux

package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/bloom/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// MprisMonitor watches media playback via the D-Bus MPRIS interface and
// emits a TrackMetadata event whenever the playing track changes.
type MprisMonitor struct {
	logger          *zap.Logger
	events          chan domain.TrackMetadata
	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient // Interface for testability
	newClient       func() (DBusClient, error)
	lastDropWarning time.Time
	wg              sync.WaitGroup
	playerNames     map[string]string // unique bus name (:1.45) -> well-known name
}

// NewMprisMonitor creates a new MPRIS monitor instance
func NewMprisMonitor(logger *zap.Logger) *MprisMonitor {
	return &MprisMonitor{
		logger:      logger,
		events:      make(chan domain.TrackMetadata, 10),
		playerNames: make(map[string]string),
		newClient: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Start begins monitoring for media events. It blocks until the context is
// cancelled or the session bus connection fails.
func (m *MprisMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.logger.Info("MPRIS monitor started")

	conn, err := m.newClient()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	select {
	case <-monitorCtx.Done():
		m.logger.Info("Monitor stopped during D-Bus connection")
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	default:
	}

	// Publish the connection and register the producer under one lock.
	// Stop flips running under the same lock before waiting on the group,
	// so a producer is either counted before the wait or never registered;
	// it can never send on the closed events channel.
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.logger.Info("Monitor stopped before D-Bus setup completed")
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	}
	m.conn = conn
	m.wg.Add(1)
	m.mu.Unlock()

	func() {
		defer m.wg.Done()
		if err := m.detectExistingPlayers(); err != nil {
			m.logger.Warn("Failed to detect existing players", zap.Error(err))
		}
	}()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath("/org/mpris/MediaPlayer2"),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		m.logger.Error("Failed to add match signal", zap.Error(err))
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.conn = nil
		m.mu.Unlock()
		cancel()
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	// NameOwnerChanged tracks players appearing and disappearing
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.logger.Info("Monitor stopped before signal loop started")
		return monitorCtx.Err()
	}
	m.wg.Add(1)
	m.mu.Unlock()
	go m.monitorSignals(monitorCtx)

	<-monitorCtx.Done()

	m.logger.Info("MPRIS monitor stopped")
	return monitorCtx.Err()
}

// Stop gracefully stops the monitor
func (m *MprisMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}

	m.running = false
	m.mu.Unlock()

	// Producer goroutines must be done before the channel closes
	m.wg.Wait()
	close(m.events)

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("MPRIS monitor shutdown complete")
	return nil
}

// Events returns a read-only channel that emits TrackMetadata
func (m *MprisMonitor) Events() <-chan domain.TrackMetadata {
	return m.events
}

// detectExistingPlayers queries D-Bus for currently running MPRIS players
func (m *MprisMonitor) detectExistingPlayers() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	playerCount := 0
	for _, name := range names {
		if !strings.HasPrefix(name, "org.mpris.MediaPlayer2.") {
			continue
		}
		playerCount++
		m.logger.Info("Detected MPRIS player", zap.String("name", name))

		uniqueName, err := m.conn.GetNameOwner(name)
		if err == nil {
			m.mu.Lock()
			m.playerNames[uniqueName] = name
			m.mu.Unlock()
		}

		if err := m.fetchPlayerMetadata(name); err != nil {
			m.logger.Warn("Failed to fetch initial metadata",
				zap.String("player", name),
				zap.Error(err))
		}
	}

	m.logger.Info("Player detection complete", zap.Int("count", playerCount))
	return nil
}

// fetchPlayerMetadata retrieves and emits metadata from a specific player
func (m *MprisMonitor) fetchPlayerMetadata(playerName string) error {
	variant, err := m.conn.GetProperty(playerName, "/org/mpris/MediaPlayer2", "org.mpris.MediaPlayer2.Player.Metadata")
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// Players that are idle may return nil or unexpected types here
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		m.logger.Debug("Metadata variant is not a map, skipping", zap.String("player", playerName))
		return nil
	}

	statusVariant, err := m.conn.GetProperty(playerName, "/org/mpris/MediaPlayer2", "org.mpris.MediaPlayer2.Player.PlaybackStatus")
	if err != nil {
		return fmt.Errorf("failed to get playback status: %w", err)
	}

	status, ok := statusVariant.Value().(string)
	if !ok {
		return fmt.Errorf("invalid playback status format")
	}

	meta := m.parseMetadata(metadata, status)

	// Non-blocking send: dropped intermediate events during rapid skipping
	// are fine, the engine debounces anyway
	select {
	case m.events <- meta:
		m.logger.Debug("Emitted initial metadata", zap.String("title", meta.Title))
	default:
		m.logChannelFullWarning()
	}

	return nil
}

// monitorSignals listens for D-Bus signals and processes them
func (m *MprisMonitor) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	m.logger.Info("Signal monitoring goroutine started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Signal monitoring goroutine stopped")
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			if sig.Name == "org.freedesktop.DBus.NameOwnerChanged" {
				m.handleNameOwnerChanged(sig)
			} else {
				m.handleSignal(sig)
			}
		}
	}
}

// handleNameOwnerChanged tracks player lifecycle on the bus
func (m *MprisMonitor) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, "org.mpris.MediaPlayer2.") {
		return
	}

	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	switch {
	case newOwner != "" && oldOwner == "":
		m.mu.Lock()
		m.playerNames[newOwner] = name
		m.mu.Unlock()

		m.logger.Info("New MPRIS player detected",
			zap.String("player", name),
			zap.String("unique", newOwner))

		if err := m.fetchPlayerMetadata(name); err != nil {
			m.logger.Warn("Failed to fetch metadata from new player",
				zap.String("player", name),
				zap.Error(err))
		}

	case newOwner == "" && oldOwner != "":
		m.mu.Lock()
		delete(m.playerNames, oldOwner)
		m.mu.Unlock()

		m.logger.Info("MPRIS player removed", zap.String("player", name))

	default:
		// Ownership transfer
		m.mu.Lock()
		delete(m.playerNames, oldOwner)
		m.playerNames[newOwner] = name
		m.mu.Unlock()
	}
}

// handleSignal processes a PropertiesChanged D-Bus signal
func (m *MprisMonitor) handleSignal(sig *dbus.Signal) {
	if sig.Name != "org.freedesktop.DBus.Properties.PropertiesChanged" {
		return
	}
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != "org.mpris.MediaPlayer2.Player" {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	playerName := m.getPlayerName(sig.Sender)

	metadataVariant, hasMetadata := changedProps["Metadata"]
	statusVariant, hasStatus := changedProps["PlaybackStatus"]

	if !hasMetadata && !hasStatus {
		return
	}

	var metadata map[string]dbus.Variant
	var status string

	if hasMetadata {
		var ok bool
		metadata, ok = metadataVariant.Value().(map[string]dbus.Variant)
		if !ok {
			m.logger.Warn("Invalid metadata format in signal, ignoring")
			return
		}
	}

	if hasStatus {
		var ok bool
		status, ok = statusVariant.Value().(string)
		if !ok {
			m.logger.Warn("Invalid playback status format in signal, ignoring")
			return
		}
	} else {
		variant, err := m.conn.GetProperty(sig.Sender, "/org/mpris/MediaPlayer2", "org.mpris.MediaPlayer2.Player.PlaybackStatus")
		if err == nil {
			if s, ok := variant.Value().(string); ok {
				status = s
			}
		}
	}

	if !hasMetadata && hasStatus {
		variant, err := m.conn.GetProperty(sig.Sender, "/org/mpris/MediaPlayer2", "org.mpris.MediaPlayer2.Player.Metadata")
		if err == nil {
			if md, ok := variant.Value().(map[string]dbus.Variant); ok {
				metadata = md
			}
		}
	}

	meta := m.parseMetadata(metadata, status)

	select {
	case m.events <- meta:
		m.logger.Info("Track change detected",
			zap.String("player", playerName),
			zap.String("trackID", meta.TrackID),
			zap.String("title", meta.Title),
			zap.String("status", string(meta.Status)))
	default:
		m.logChannelFullWarning()
	}
}

// parseMetadata converts MPRIS metadata to the domain model
func (m *MprisMonitor) parseMetadata(metadata map[string]dbus.Variant, status string) domain.TrackMetadata {
	var meta domain.TrackMetadata

	switch status {
	case "Playing":
		meta.Status = domain.StatusPlaying
	case "Paused":
		meta.Status = domain.StatusPaused
	default:
		meta.Status = domain.StatusStopped
	}

	if metadata == nil {
		return meta
	}

	if idVar, ok := metadata["mpris:trackid"]; ok {
		switch id := idVar.Value().(type) {
		case dbus.ObjectPath:
			meta.TrackID = string(id)
		case string:
			meta.TrackID = id
		}
	}

	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			meta.Title = title
		}
	}

	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			if len(artists) > 0 {
				meta.Artist = artists[0]
			}
		case string:
			meta.Artist = artists
		default:
			m.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			meta.Album = album
		}
	}

	if artVar, ok := metadata["mpris:artUrl"]; ok {
		if artURL, ok := artVar.Value().(string); ok && artURL != "" {
			meta.ThumbnailURL = artURL
		}
	}

	// Some players expose a separate album art reference
	if coverVar, ok := metadata["xesam:albumArtUrl"]; ok {
		if cover, ok := coverVar.Value().(string); ok && cover != "" {
			meta.AlbumCover = cover
		}
	}

	return meta
}

// getPlayerName returns the well-known player name for a unique bus name,
// falling back to the unique name itself
func (m *MprisMonitor) getPlayerName(uniqueName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if wellKnown, ok := m.playerNames[uniqueName]; ok {
		return wellKnown
	}
	return uniqueName
}

// logChannelFullWarning logs a rate-limited warning about dropped events
func (m *MprisMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping track event",
			zap.String("note", "Expected during rapid track skipping; the engine debounces."))
		m.lastDropWarning = now
	}
}
