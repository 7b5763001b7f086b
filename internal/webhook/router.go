// Package webhook routes inbound platform events to the right bot
// instances and serves the public webhook endpoints.
package webhook

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/piaaz/botfleet/internal/bot"
	"github.com/piaaz/botfleet/internal/config"
)

// Router resolves decoded platform payloads to bot instances using the
// registry's indices. Each platform has its own resolution policy:
// telegram is path-addressed and strict, whatsapp routes by
// phone_number_id with a configurable unmatched policy, instagram always
// broadcasts because its payloads carry no addressable key.
type Router struct {
	reg       *bot.Registry
	unmatched config.RoutingPolicy
}

// NewRouter creates a Router. unmatched decides what happens to whatsapp
// events whose routing key resolves to no instance.
func NewRouter(reg *bot.Registry, unmatched config.RoutingPolicy) *Router {
	return &Router{reg: reg, unmatched: unmatched}
}

// RouteTelegram hands an update to the bot named by the webhook path.
// Unknown or inactive bots get ErrUnknownID; there is no fallback.
func (rt *Router) RouteTelegram(ctx context.Context, botID string, payload json.RawMessage) error {
	adapter, ok := rt.reg.ActiveAdapter(bot.PlatformTelegram, botID)
	if !ok {
		return bot.ErrUnknownID
	}
	if err := adapter.HandleEvent(ctx, payload); err != nil {
		log.Printf("router: telegram event for %s failed: %v", botID, err)
	}
	return nil
}

// RouteWhatsApp dispatches one change value by its metadata.phone_number_id.
// A matched key goes to exactly that instance. Unmatched keys follow the
// configured policy: broadcast to every active whatsapp instance, or drop.
func (rt *Router) RouteWhatsApp(ctx context.Context, value json.RawMessage) {
	var envelope struct {
		Metadata struct {
			PhoneNumberID string `json:"phone_number_id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		log.Printf("router: undecodable whatsapp value: %v", err)
		return
	}
	phoneID := envelope.Metadata.PhoneNumberID

	if phoneID != "" {
		if adapter, ok := rt.reg.ResolveWhatsApp(phoneID); ok {
			rt.dispatch(ctx, bot.PlatformWhatsApp, []bot.Adapter{adapter}, value)
			return
		}
	}

	if rt.unmatched == config.RoutingDrop {
		log.Printf("router: dropping whatsapp event with unmatched phone_number_id %q", phoneID)
		return
	}
	rt.dispatch(ctx, bot.PlatformWhatsApp, rt.reg.ActiveByPlatform(bot.PlatformWhatsApp), value)
}

// RouteInstagram broadcasts one change value to every active instagram
// instance: the consumed payload shape has no page correlation to route by.
func (rt *Router) RouteInstagram(ctx context.Context, value json.RawMessage) {
	rt.dispatch(ctx, bot.PlatformInstagram, rt.reg.ActiveByPlatform(bot.PlatformInstagram), value)
}

// dispatch delivers the value to every target, isolating failures so one
// broken instance cannot starve its siblings. The event ID ties the log
// lines of one inbound payload together.
func (rt *Router) dispatch(ctx context.Context, platform bot.Platform, targets []bot.Adapter, value json.RawMessage) {
	if len(targets) == 0 {
		log.Printf("router: no active %s targets for event", platform)
		return
	}
	eventID := uuid.NewString()
	for _, target := range targets {
		if err := target.HandleEvent(ctx, value); err != nil {
			log.Printf("router: %s event %s: handler failed: %v", platform, eventID, err)
		}
	}
}
