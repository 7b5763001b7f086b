package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Registry owns the bot fleet: configurations, running adapters, and the
// routing index that maps inbound webhook traffic to instances.
type Registry struct {
	factory AdapterFactory

	mu     sync.Mutex
	metas  map[string]Config
	live   map[string]Adapter // nil entry means configured but inactive
	byWAID map[string]string  // whatsapp phone_number_id -> bot id
	lastID int64
}

// NewRegistry creates an empty registry that builds adapters with factory.
func NewRegistry(factory AdapterFactory) *Registry {
	return &Registry{
		factory: factory,
		metas:   make(map[string]Config),
		live:    make(map[string]Adapter),
		byWAID:  make(map[string]string),
	}
}

// requiredCreds lists the credential keys a platform cannot run without.
// The same keys are the sensitive ones: changing any of them needs a restart.
func requiredCreds(p Platform) []string {
	switch p {
	case PlatformTelegram:
		return []string{"openai", "tgToken"}
	case PlatformWhatsApp:
		return []string{"openai", "waToken", "waPhoneId"}
	case PlatformInstagram:
		return []string{"openai", "igPageId", "igUserId", "igAccess"}
	}
	return nil
}

func hasAllCreds(cfg Config) bool {
	for _, k := range requiredCreds(cfg.Platform) {
		if strings.TrimSpace(cfg.Creds[k]) == "" {
			return false
		}
	}
	return true
}

// needRestart reports whether an update changed something a running
// adapter cannot pick up hot: the platform itself or a sensitive credential.
func needRestart(old, merged Config) bool {
	if old.Platform != merged.Platform {
		return true
	}
	for _, k := range requiredCreds(merged.Platform) {
		if old.Creds[k] != merged.Creds[k] {
			return true
		}
	}
	return false
}

// genID issues bot_<unix-ms> IDs, nudged forward on collision so two
// creates in the same millisecond stay distinct.
func (r *Registry) genID() string {
	now := time.Now().UnixMilli()
	if now <= r.lastID {
		now = r.lastID + 1
	}
	r.lastID = now
	return fmt.Sprintf("bot_%d", now)
}

// List returns a summary of every configured instance.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Summary, 0, len(r.metas))
	for id, cfg := range r.metas {
		mode := cfg.ReplyMode
		if mode == "" {
			mode = ReplyText
		}
		out = append(out, Summary{
			ID:        id,
			Platform:  cfg.Platform,
			Active:    r.live[id] != nil,
			ReplyMode: mode,
			Company:   cfg.Company,
		})
	}
	return out
}

// Create registers a new instance and tries to start it. A start failure
// leaves the instance configured but inactive; Create still succeeds so
// the operator can fix credentials and restart later.
func (r *Registry) Create(ctx context.Context, cfg Config) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !cfg.Platform.Valid() {
		return "", ErrUnsupportedPlatform
	}

	id := cfg.ID
	if id == "" {
		id = r.genID()
	}
	cfg.ID = id

	if !hasAllCreds(cfg) {
		log.Printf("registry: missing required credentials for %s (bot=%s)", cfg.Platform, id)
	}

	r.metas[id] = cfg

	if err := r.startLocked(ctx, id); err != nil {
		log.Printf("registry: start failed for %s: %v", id, err)
	}
	return id, nil
}

// Start activates a configured instance, replacing any running adapter.
func (r *Registry) Start(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx, id)
}

// Stop deactivates an instance. Its configuration is kept.
func (r *Registry) Stop(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[id]; !ok {
		return ErrUnknownID
	}
	r.stopLocked(ctx, id)
	return nil
}

// Restart stops and starts an instance, dropping its sessions.
func (r *Registry) Restart(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[id]; !ok {
		return ErrUnknownID
	}
	r.stopLocked(ctx, id)
	return r.startLocked(ctx, id)
}

// Delete stops an instance and removes its configuration.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metas[id]; !ok {
		return ErrUnknownID
	}
	r.stopLocked(ctx, id)
	delete(r.metas, id)
	delete(r.live, id)
	return nil
}

// Update merges a partial config change into an instance. Changes to the
// platform or a sensitive credential force a restart, which drops the
// instance's sessions; everything else is applied hot.
func (r *Registry) Update(ctx context.Context, id string, upd Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.metas[id]
	if !ok {
		return ErrUnknownID
	}

	merged := mergeConfig(old, upd)
	if !merged.Platform.Valid() {
		return ErrUnsupportedPlatform
	}

	restart := needRestart(old, merged)
	r.metas[id] = merged

	if restart {
		log.Printf("registry: config change requires restart for %s", id)
		r.stopLocked(ctx, id)
		// The merged config is already saved; a failed start just leaves
		// the instance inactive, same as a failed start on create.
		if err := r.startLocked(ctx, id); err != nil {
			log.Printf("registry: restart failed for %s: %v", id, err)
		}
		return nil
	}

	if adapter := r.live[id]; adapter != nil {
		adapter.UpdateProfile(merged.Profile(), merged.Creds["openai"])
		log.Printf("registry: hot-updated %s", id)
	}
	return nil
}

// mergeConfig overlays an update onto a config. Company and Creds merge
// key by key so partial updates do not wipe sibling fields.
func mergeConfig(old Config, upd Update) Config {
	merged := old

	merged.Company = make(map[string]any, len(old.Company)+len(upd.Company))
	for k, v := range old.Company {
		merged.Company[k] = v
	}
	for k, v := range upd.Company {
		merged.Company[k] = v
	}

	merged.Creds = make(map[string]string, len(old.Creds)+len(upd.Creds))
	for k, v := range old.Creds {
		merged.Creds[k] = v
	}
	for k, v := range upd.Creds {
		merged.Creds[k] = v
	}

	if upd.Platform != nil {
		merged.Platform = *upd.Platform
	}
	if upd.ReplyMode != nil {
		merged.ReplyMode = *upd.ReplyMode
	}
	if upd.Voice != nil {
		merged.Voice = upd.Voice
	}
	return merged
}

func (r *Registry) startLocked(ctx context.Context, id string) error {
	cfg, ok := r.metas[id]
	if !ok {
		return ErrUnknownID
	}

	r.stopLocked(ctx, id)

	if !hasAllCreds(cfg) {
		r.live[id] = nil
		return fmt.Errorf("missing required credentials for %s", cfg.Platform)
	}

	adapter, err := r.factory(cfg)
	if err != nil {
		r.live[id] = nil
		return fmt.Errorf("building adapter for %s: %w", id, err)
	}
	if err := adapter.Start(ctx); err != nil {
		r.live[id] = nil
		return fmt.Errorf("starting %s: %w", id, err)
	}

	r.live[id] = adapter
	r.indexLocked(id, cfg)
	log.Printf("registry: %s bot started: %s", cfg.Platform, id)
	return nil
}

func (r *Registry) stopLocked(ctx context.Context, id string) {
	if adapter := r.live[id]; adapter != nil {
		if err := adapter.Stop(ctx); err != nil {
			log.Printf("registry: error while stopping %s: %v", id, err)
		}
	}
	r.live[id] = nil
	for key, owner := range r.byWAID {
		if owner == id {
			delete(r.byWAID, key)
		}
	}
	log.Printf("registry: bot stopped: %s", id)
}

// indexLocked records the routing key of a freshly started instance.
// When two instances claim the same key the newest start wins.
func (r *Registry) indexLocked(id string, cfg Config) {
	if cfg.Platform != PlatformWhatsApp {
		return
	}
	phoneID := strings.TrimSpace(cfg.Creds["waPhoneId"])
	if phoneID == "" {
		return
	}
	if prev, ok := r.byWAID[phoneID]; ok && prev != id {
		log.Printf("registry: phone_number_id %s re-claimed by %s (was %s)", phoneID, id, prev)
	}
	r.byWAID[phoneID] = id
}

// ActiveAdapter returns the running adapter for id, if any. The platform
// guard keeps a re-platformed bot from serving its old webhook path.
func (r *Registry) ActiveAdapter(p Platform, id string) (Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.metas[id]
	if !ok || cfg.Platform != p {
		return nil, false
	}
	a := r.live[id]
	return a, a != nil
}

// ResolveWhatsApp looks up the active instance owning a phone_number_id.
func (r *Registry) ResolveWhatsApp(phoneID string) (Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byWAID[phoneID]
	if !ok {
		return nil, false
	}
	a := r.live[id]
	return a, a != nil
}

// ActiveByPlatform returns every running adapter on the given platform.
func (r *Registry) ActiveByPlatform(p Platform) []Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Adapter
	for id, cfg := range r.metas {
		if cfg.Platform != p {
			continue
		}
		if a := r.live[id]; a != nil {
			out = append(out, a)
		}
	}
	return out
}
