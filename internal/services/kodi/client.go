package kodi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"kodarr/internal/config"
	"kodarr/internal/logging"
	"kodarr/internal/services"
)

const (
	// NotificationTitleStopped titles the forced "playback stopped" notification.
	NotificationTitleStopped = "Radarr - Stopped Playback"
	// NotificationImage is shown beside every GUI notification.
	NotificationImage = "https://raw.githubusercontent.com/Radarr/Radarr/develop/Logo/256.png"

	notificationDisplayTime = 5000
	guiRefreshDirectory     = "/does_not_exist/"

	defaultPollInterval    = 100 * time.Millisecond
	defaultDirScanTimeout  = 2 * time.Minute
	defaultFullScanTimeout = 30 * time.Minute
	defaultCleanTimeout    = 5 * time.Minute
	defaultStartTimeout    = 5 * time.Second
	defaultStartPoll       = 250 * time.Millisecond
	defaultPauseAttempts   = 3
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client exposes typed Kodi operations for one host.
type Client struct {
	name                 string
	priority             int
	disableNotifications bool
	session              Session
	mappings             []PathMapping
	logger               *slog.Logger

	platform      Platform
	platformKnown bool
	scanned       bool

	callTimeout     time.Duration
	catalogTimeout  time.Duration
	pollInterval    time.Duration
	dirScanTimeout  time.Duration
	fullScanTimeout time.Duration
	cleanTimeout    time.Duration
	startTimeout    time.Duration
	startPoll       time.Duration
	pauseAttempts   int
	sleep           Sleeper
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPathMappings sets the Radarr-to-Kodi path mappings.
func WithPathMappings(mappings []PathMapping) Option {
	return func(c *Client) {
		c.mappings = append([]PathMapping(nil), mappings...)
	}
}

// WithPriority sets the host priority. Lower values are tried first.
func WithPriority(priority int) Option {
	return func(c *Client) { c.priority = priority }
}

// WithNotificationsDisabled suppresses non-forced GUI notifications.
func WithNotificationsDisabled(disabled bool) Option {
	return func(c *Client) { c.disableNotifications = disabled }
}

// WithPlatform pins the platform and skips the probe.
func WithPlatform(platform Platform) Option {
	return func(c *Client) {
		c.platform = platform
		c.platformKnown = true
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithPollInterval overrides the scan completion polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithScanTimeouts overrides the directory scan, full scan, and clean deadlines.
func WithScanTimeouts(directory, full, clean time.Duration) Option {
	return func(c *Client) {
		if directory > 0 {
			c.dirScanTimeout = directory
		}
		if full > 0 {
			c.fullScanTimeout = full
		}
		if clean > 0 {
			c.cleanTimeout = clean
		}
	}
}

// WithStartConfirmation overrides how long and how often StartMovie polls for
// the new player.
func WithStartConfirmation(timeout, poll time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.startTimeout = timeout
		}
		if poll > 0 {
			c.startPoll = poll
		}
	}
}

// WithPauseAttempts overrides how many times PausePlayer toggles before giving up.
func WithPauseAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.pauseAttempts = attempts
		}
	}
}

// WithSleeper replaces the wait function used between polls.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient wraps a session for the named host.
func NewClient(name string, session Session, opts ...Option) *Client {
	c := &Client{
		name:            name,
		session:         session,
		logger:          logging.NewNop(),
		callTimeout:     DefaultCallTimeout,
		catalogTimeout:  CatalogCallTimeout,
		pollInterval:    defaultPollInterval,
		dirScanTimeout:  defaultDirScanTimeout,
		fullScanTimeout: defaultFullScanTimeout,
		cleanTimeout:    defaultCleanTimeout,
		startTimeout:    defaultStartTimeout,
		startPoll:       defaultStartPoll,
		pauseAttempts:   defaultPauseAttempts,
		sleep:           SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.String(logging.FieldHost, name))
	return c
}

// NewFromConfig builds a client and its session from a host entry.
func NewFromConfig(host config.Host, maps []config.PathMap, logger *slog.Logger, opts ...Option) *Client {
	var session Session
	switch host.Transport {
	case config.TransportWebSocket:
		session = NewWSSession(WSEndpoint(host.Address, host.WSPort), host.User, host.Password)
	default:
		session = NewHTTPSession(HTTPEndpoint(host.Address, host.Port), host.User, host.Password, nil)
	}
	mappings := make([]PathMapping, 0, len(maps))
	for _, m := range maps {
		mappings = append(mappings, PathMapping{Source: m.Source, Target: m.Target})
	}
	base := []Option{
		WithLogger(logging.NewComponentLogger(logger, "kodi")),
		WithPathMappings(mappings),
		WithPriority(host.Priority),
		WithNotificationsDisabled(host.DisableNotifications),
		WithCallTimeout(time.Duration(host.TimeoutSeconds) * time.Second),
	}
	return NewClient(host.Name, session, append(base, opts...)...)
}

// Name returns the configured host name.
func (c *Client) Name() string { return c.name }

// Priority returns the configured priority.
func (c *Client) Priority() int { return c.priority }

// NotificationsDisabled reports whether non-forced notifications are suppressed.
func (c *Client) NotificationsDisabled() bool { return c.disableNotifications }

// Scanned reports whether this host performed a library mutation during the
// current event.
func (c *Client) Scanned() bool { return c.scanned }

// ResetScanned clears the scanned flag at the start of an event.
func (c *Client) ResetScanned() { c.scanned = false }

func (c *Client) String() string { return c.name }

// Close releases the session.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	return c.callWithTimeout(ctx, method, params, c.callTimeout, out)
}

func (c *Client) callWithTimeout(ctx context.Context, method string, params any, timeout time.Duration, out any) error {
	raw, err := c.session.Call(ctx, method, params, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return services.Wrap(services.ErrProtocol, "kodi", method, "decode result", err)
	}
	return nil
}

func (c *Client) warn(ctx context.Context, msg string, err error, attrs ...logging.Attr) {
	hint := "check that the host is running and reachable"
	switch {
	case errors.Is(err, services.ErrAuth):
		hint = "check the configured user and password"
	case errors.Is(err, services.ErrRemote):
		hint = "the host rejected the request"
	case errors.Is(err, services.ErrScanTimeout):
		hint = "the host may still be busy with a previous scan"
	case !services.IsHostUnavailable(err):
		hint = "kodarr built a request the host cannot accept"
	}
	eventType := "kodi_call_failed"
	if !services.IsHostUnavailable(err) {
		eventType = "kodi_request_invalid"
	}
	attrs = append(attrs,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "host treated as unavailable for this operation"),
	)
	logging.WarnWithContext(c.log(ctx), msg, eventType, attrs...)
}

// Ping reports whether the host answers JSONRPC.Ping with "pong".
func (c *Client) Ping(ctx context.Context) bool {
	var result string
	if err := c.call(ctx, "JSONRPC.Ping", nil, &result); err != nil {
		c.warn(ctx, "ping failed", err)
		return false
	}
	return result == "pong"
}

// Version returns the host's JSON-RPC API version, or nil when unavailable.
func (c *Client) Version(ctx context.Context) *RPCVersion {
	var result struct {
		Version map[string]any `json:"version"`
	}
	if err := c.call(ctx, "JSONRPC.Version", nil, &result); err != nil {
		c.warn(ctx, "version query failed", err)
		return nil
	}
	return &RPCVersion{
		Major: cast.ToInt(result.Version["major"]),
		Minor: cast.ToInt(result.Version["minor"]),
		Patch: cast.ToInt(result.Version["patch"]),
	}
}

// Platform probes and caches the host platform.
func (c *Client) Platform(ctx context.Context) Platform {
	if c.platformKnown {
		return c.platform
	}
	booleans := make([]string, 0, len(KnownPlatforms))
	for _, p := range KnownPlatforms {
		booleans = append(booleans, string(p))
	}
	var result map[string]any
	c.platform = PlatformUnknown
	c.platformKnown = true
	if err := c.call(ctx, "XBMC.GetInfoBooleans", map[string]any{"booleans": booleans}, &result); err != nil {
		c.warn(ctx, "platform probe failed", err)
		return c.platform
	}
	for _, p := range KnownPlatforms {
		if cast.ToBool(result[string(p)]) {
			c.platform = p
			break
		}
	}
	c.log(ctx).Debug("detected platform", logging.String("platform", c.platform.Short()))
	return c.platform
}

// log returns the host logger carrying the request's correlation fields.
func (c *Client) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, c.logger)
}

func (c *Client) style(ctx context.Context) pathStyle {
	return pathStyle{windows: c.Platform(ctx).UsesWindowsPaths()}
}

// MapPath translates a Radarr path into this host's path.
func (c *Client) MapPath(ctx context.Context, value string) string {
	return c.style(ctx).Render(MapPath(value, c.mappings))
}

// ActivePlayers lists the host's active players.
func (c *Client) ActivePlayers(ctx context.Context) []Player {
	var result []map[string]any
	if err := c.call(ctx, "Player.GetActivePlayers", nil, &result); err != nil {
		c.warn(ctx, "active player query failed", err)
		return nil
	}
	players := make([]Player, 0, len(result))
	for _, raw := range result {
		players = append(players, Player{
			ID:         cast.ToInt(raw["playerid"]),
			PlayerType: cast.ToString(raw["playertype"]),
			Type:       cast.ToString(raw["type"]),
		})
	}
	return players
}

// IsPlaying reports whether any player is active.
func (c *Client) IsPlaying(ctx context.Context) bool {
	return len(c.ActivePlayers(ctx)) > 0
}

// IsScanning reports whether a library scan or clean is in progress.
func (c *Client) IsScanning(ctx context.Context) bool {
	scanning, err := c.isScanning(ctx)
	if err != nil {
		c.warn(ctx, "scan state query failed", err)
		return false
	}
	return scanning
}

func (c *Client) isScanning(ctx context.Context) (bool, error) {
	var result map[string]any
	if err := c.call(ctx, "XBMC.GetInfoBooleans", map[string]any{"booleans": []string{"Library.IsScanning"}}, &result); err != nil {
		return false, err
	}
	return cast.ToBool(result["Library.IsScanning"]), nil
}

// waitForScan polls Library.IsScanning until it clears or the deadline
// passes. A failed poll counts as not scanning.
func (c *Client) waitForScan(ctx context.Context, operation string, deadline time.Duration) (time.Duration, error) {
	start := time.Now()
	for {
		if !c.IsScanning(ctx) {
			return time.Since(start), nil
		}
		elapsed := time.Since(start)
		if elapsed >= deadline {
			return elapsed, services.Wrap(services.ErrScanTimeout, "kodi", operation, fmt.Sprintf("still scanning after %s", elapsed.Round(time.Millisecond)), nil)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return elapsed, err
		}
	}
}

func (c *Client) runLibraryJob(ctx context.Context, method string, params any, deadline time.Duration, label string) bool {
	if err := c.call(ctx, method, params, nil); err != nil {
		c.warn(ctx, label+" request failed", err)
		return false
	}
	elapsed, err := c.waitForScan(ctx, method, deadline)
	if err != nil {
		c.warn(ctx, label+" did not complete", err)
		return false
	}
	c.log(ctx).Info(label+" completed", logging.Duration("elapsed", elapsed))
	c.scanned = true
	return true
}

// ScanDirectory scans one directory and waits for completion.
func (c *Client) ScanDirectory(ctx context.Context, directory string) bool {
	style := c.style(ctx)
	mapped := style.WithTrailingSeparator(style.Render(MapPath(directory, c.mappings)))
	c.log(ctx).Info("scanning directory", logging.String("directory", mapped))
	params := map[string]any{"directory": mapped, "showdialogs": false}
	return c.runLibraryJob(ctx, "VideoLibrary.Scan", params, c.dirScanTimeout, "directory scan")
}

// FullScan scans the whole video library and waits for completion.
func (c *Client) FullScan(ctx context.Context) bool {
	c.log(ctx).Info("scanning full library")
	params := map[string]any{"showdialogs": false}
	return c.runLibraryJob(ctx, "VideoLibrary.Scan", params, c.fullScanTimeout, "full scan")
}

// CleanLibrary cleans the movie library and waits for completion.
func (c *Client) CleanLibrary(ctx context.Context) bool {
	c.log(ctx).Info("cleaning movie library")
	params := map[string]any{"showdialogs": false, "content": "movies"}
	return c.runLibraryJob(ctx, "VideoLibrary.Clean", params, c.cleanTimeout, "library clean")
}

// UpdateGUI refreshes widgets by scanning a directory that does not exist.
func (c *Client) UpdateGUI(ctx context.Context) {
	c.log(ctx).Info("refreshing gui")
	params := map[string]any{"directory": guiRefreshDirectory, "showdialogs": false}
	if err := c.call(ctx, "VideoLibrary.Scan", params, nil); err != nil {
		c.warn(ctx, "gui refresh failed", err)
	}
}

type moviesResult struct {
	Movies []map[string]any `json:"movies"`
}

func (c *Client) queryMovies(ctx context.Context, filter any, timeout time.Duration, label string) []Movie {
	params := map[string]any{"properties": MovieProperties}
	if filter != nil {
		params["filter"] = filter
	}
	var result moviesResult
	if err := c.callWithTimeout(ctx, "VideoLibrary.GetMovies", params, timeout, &result); err != nil {
		c.warn(ctx, label+" failed", err)
		return nil
	}
	movies := make([]Movie, 0, len(result.Movies))
	for _, raw := range result.Movies {
		movie, ok := parseMovie(raw)
		if !ok {
			c.log(ctx).Debug("skipping malformed movie entry", logging.Any("entry", raw))
			continue
		}
		movies = append(movies, movie)
	}
	return movies
}

// AllMovies returns the whole movie catalog.
func (c *Client) AllMovies(ctx context.Context) []Movie {
	c.log(ctx).Debug("querying full catalog")
	return c.queryMovies(ctx, nil, c.catalogTimeout, "catalog query")
}

// MoviesByDirectory returns movies stored under directory. Kodi paths end in
// a separator, so the prefix carries one too and sibling folders sharing a
// name prefix do not match.
func (c *Client) MoviesByDirectory(ctx context.Context, directory string) []Movie {
	style := c.style(ctx)
	mapped := style.WithTrailingSeparator(style.Render(MapPath(directory, c.mappings)))
	c.log(ctx).Debug("querying movies by directory", logging.String("directory", mapped))
	filter := map[string]any{"operator": "startswith", "field": "path", "value": mapped}
	return c.queryMovies(ctx, filter, c.callTimeout, "directory query")
}

// MoviesByFile returns movies backed by the given file.
func (c *Client) MoviesByFile(ctx context.Context, file string) []Movie {
	style := c.style(ctx)
	mapped := style.Render(MapPath(file, c.mappings))
	c.log(ctx).Debug("querying movies by file", logging.String("file", mapped))
	filter := map[string]any{
		"and": []map[string]any{
			{"operator": "startswith", "field": "path", "value": style.WithTrailingSeparator(style.Dir(mapped))},
			{"operator": "is", "field": "filename", "value": style.Base(mapped)},
		},
	}
	return c.queryMovies(ctx, filter, c.callTimeout, "file query")
}

// RemoveMovie removes a catalog entry.
func (c *Client) RemoveMovie(ctx context.Context, movieID int) bool {
	c.log(ctx).Debug("removing movie", logging.MovieID(movieID))
	if err := c.call(ctx, "VideoLibrary.RemoveMovie", map[string]any{"movieid": movieID}, nil); err != nil {
		c.warn(ctx, "movie removal failed", err, logging.MovieID(movieID))
		return false
	}
	c.scanned = true
	return true
}

// SetWatchedState applies a watched state to a catalog entry.
func (c *Client) SetWatchedState(ctx context.Context, movieID int, state WatchedState) bool {
	params := map[string]any{
		"movieid":    movieID,
		"playcount":  state.PlayCount,
		"lastplayed": formatTime(state.LastPlayed),
		"dateadded":  formatTime(state.DateAdded),
		"resume": map[string]any{
			"position": state.Resume.Position,
			"total":    state.Resume.Total,
		},
	}
	c.log(ctx).Debug("setting watched state", logging.MovieID(movieID), logging.String("state", state.String()))
	if err := c.call(ctx, "VideoLibrary.SetMovieDetails", params, nil); err != nil {
		c.warn(ctx, "watched state update failed", err, logging.MovieID(movieID))
		return false
	}
	return true
}

// Notify shows a GUI notification unless notifications are disabled for this
// host and force is false.
func (c *Client) Notify(ctx context.Context, title, message string, force bool) {
	if c.disableNotifications && !force {
		c.log(ctx).Debug("notifications disabled for host, skipping", logging.String("title", title))
		return
	}
	params := map[string]any{
		"title":       title,
		"message":     message,
		"displaytime": notificationDisplayTime,
		"image":       NotificationImage,
	}
	c.log(ctx).Info("sending notification", logging.String("title", title), logging.String("message", message))
	if err := c.call(ctx, "GUI.ShowNotification", params, nil); err != nil {
		c.warn(ctx, "notification failed", err)
	}
}

// PlayerItem returns what a player is playing, or nil when unavailable.
func (c *Client) PlayerItem(ctx context.Context, playerID int) *PlayerItem {
	var result struct {
		Item map[string]any `json:"item"`
	}
	params := map[string]any{"playerid": playerID, "properties": []string{"file"}}
	if err := c.call(ctx, "Player.GetItem", params, &result); err != nil {
		c.warn(ctx, "player item query failed", err, logging.Int("player_id", playerID))
		return nil
	}
	if result.Item == nil {
		return nil
	}
	id, err := cast.ToIntE(result.Item["id"])
	if err != nil {
		return nil
	}
	return &PlayerItem{
		ID:    id,
		Label: cast.ToString(result.Item["label"]),
		Type:  cast.ToString(result.Item["type"]),
		File:  cast.ToString(result.Item["file"]),
	}
}

func (c *Client) playerProperty(ctx context.Context, playerID int, property string) (any, error) {
	var result map[string]any
	params := map[string]any{"playerid": playerID, "properties": []string{property}}
	if err := c.call(ctx, "Player.GetProperties", params, &result); err != nil {
		return nil, err
	}
	return result[property], nil
}

// PlayerPercent returns the player's position as a percentage.
func (c *Client) PlayerPercent(ctx context.Context, playerID int) float64 {
	value, err := c.playerProperty(ctx, playerID, "percentage")
	if err != nil {
		c.warn(ctx, "player position query failed", err, logging.Int("player_id", playerID))
		return 0
	}
	return cast.ToFloat64(value)
}

// IsPaused reports whether the player's speed is zero.
func (c *Client) IsPaused(ctx context.Context, playerID int) bool {
	value, err := c.playerProperty(ctx, playerID, "speed")
	if err != nil {
		c.warn(ctx, "player speed query failed", err, logging.Int("player_id", playerID))
		return false
	}
	return cast.ToInt(value) == 0
}

// StopPlayer stops a player.
func (c *Client) StopPlayer(ctx context.Context, playerID int) bool {
	if err := c.call(ctx, "Player.Stop", map[string]any{"playerid": playerID}, nil); err != nil {
		c.warn(ctx, "player stop failed", err, logging.Int("player_id", playerID))
		return false
	}
	return true
}

// PausePlayer toggles playback until the player reports speed zero. It gives
// up after the configured number of attempts.
func (c *Client) PausePlayer(ctx context.Context, playerID int) bool {
	params := map[string]any{"playerid": playerID}
	for attempt := 1; attempt <= c.pauseAttempts; attempt++ {
		var result map[string]any
		if err := c.call(ctx, "Player.PlayPause", params, &result); err != nil {
			c.warn(ctx, "player pause failed", err, logging.Int("player_id", playerID))
			return false
		}
		if cast.ToInt(result["speed"]) == 0 {
			return true
		}
	}
	logging.WarnWithContext(c.log(ctx), "player did not pause", "pause_unconfirmed",
		logging.Int("player_id", playerID),
		logging.Int("attempts", c.pauseAttempts),
		logging.String(logging.FieldErrorHint, "pause the movie manually"),
		logging.String(logging.FieldImpact, "restored playback keeps running"),
	)
	return false
}

// StartMovie opens a library movie at position (percent) and waits for a
// movie player showing it. Returns nil when playback never confirmed.
func (c *Client) StartMovie(ctx context.Context, movieID int, position float64) *Player {
	c.log(ctx).Info("restarting movie", logging.MovieID(movieID), logging.Float64("position", position))
	params := map[string]any{
		"item":    map[string]any{"movieid": movieID},
		"options": map[string]any{"resume": position},
	}
	if err := c.call(ctx, "Player.Open", params, nil); err != nil {
		c.warn(ctx, "movie start failed", err, logging.MovieID(movieID))
		return nil
	}

	start := time.Now()
	for {
		for _, player := range c.ActivePlayers(ctx) {
			item := c.PlayerItem(ctx, player.ID)
			if item != nil && item.IsMovie() && item.ID == movieID {
				return &player
			}
		}
		if time.Since(start) >= c.startTimeout {
			logging.WarnWithContext(c.log(ctx), "movie did not start", "start_unconfirmed",
				logging.MovieID(movieID),
				logging.Duration("waited", c.startTimeout),
				logging.String(logging.FieldErrorHint, "start the movie manually"),
				logging.String(logging.FieldImpact, "playback not restored"),
			)
			return nil
		}
		if err := c.sleep(ctx, c.startPoll); err != nil {
			return nil
		}
	}
}

// Describe returns a one-line summary of the host for logs.
func (c *Client) Describe(ctx context.Context) string {
	parts := []string{c.name}
	if version := c.Version(ctx); version != nil {
		parts = append(parts, "JSON-RPC "+version.String())
	}
	return strings.Join(parts, " ")
}
