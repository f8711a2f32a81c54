package services

import (
	"context"

	"visionpulse-notifier-go/internal/backend"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/models"
	"visionpulse-notifier-go/internal/services/alertengine"
	"visionpulse-notifier-go/internal/services/audio"
	"visionpulse-notifier-go/internal/services/eventfeed"
	"visionpulse-notifier-go/internal/services/framerelay"
	"visionpulse-notifier-go/internal/services/messaging"
	"visionpulse-notifier-go/internal/services/uibridge"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Backend   *backend.Client
	Messaging *messaging.Service
	Bridge    *uibridge.Bridge
	Player    *audio.Player
	Session   *models.SessionFlags
	Engine    *alertengine.Engine
	Feed      *eventfeed.Feed
	Relay     *framerelay.Relay
}

// NewServiceContainer creates and wires the full service graph
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	client := backend.NewClient(cfg)

	msg, err := messaging.NewService(cfg)
	if err != nil {
		return nil, err
	}

	bridge, err := uibridge.NewBridge(cfg, msg)
	if err != nil {
		return nil, err
	}

	player := audio.NewPlayer(cfg, client)
	session := models.NewSessionFlags()

	engine := alertengine.NewEngine(cfg, client, bridge, player, session)
	engine.SetBroadcaster(bridge)

	feed := eventfeed.NewFeed(cfg, engine.HandleEvent)
	engine.SetFeed(feed)

	relay := framerelay.NewRelay(cfg, client, session, msg)

	return &ServiceContainer{
		Config:    cfg,
		Backend:   client,
		Messaging: msg,
		Bridge:    bridge,
		Player:    player,
		Session:   session,
		Engine:    engine,
		Feed:      feed,
		Relay:     relay,
	}, nil
}

// Start connects the alert feed
func (sc *ServiceContainer) Start() error {
	return sc.Feed.Connect()
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Feed != nil {
		sc.Feed.Close()
	}

	if sc.Relay != nil {
		sc.Relay.Shutdown()
	}

	if sc.Player != nil {
		sc.Player.Stop()
		sc.Player.ClearAllRepeats()
	}

	if sc.Messaging != nil {
		return sc.Messaging.Shutdown(ctx)
	}

	return nil
}
