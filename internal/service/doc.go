// Package service connects file system changes to the rest of the server.
//
// # Event System
//
// EventBus fans events out to subscribers without blocking the publisher;
// a subscriber that is not ready misses the event. The SSE hub subscribes
// to it to push live-reload notifications to browsers.
//
// # Changes
//
// ChangeService receives paths from the watcher, invalidates the engine
// keys caching them and publishes asset_changed or asset_removed events.
package service
