package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PlanSpec describes one purchasable plan from the catalog file.
type PlanSpec struct {
	Code            string `mapstructure:"code"`
	Name            string `mapstructure:"name"`
	PriceKobo       int64  `mapstructure:"price_kobo"`
	DurationDays    int    `mapstructure:"duration_days"`
	AICredits       int64  `mapstructure:"ai_credits"`
	DailyCacheLimit int    `mapstructure:"daily_cache_limit"`
	Trial           bool   `mapstructure:"trial"`
}

// PlanCatalog is the full set of plans plus catalog-level knobs.
type PlanCatalog struct {
	GraceWindow time.Duration
	Plans       []PlanSpec
}

// PlanCatalogHolder serves the current catalog and hot-reloads it when
// the backing file changes.
type PlanCatalogHolder struct {
	mu      sync.RWMutex
	catalog PlanCatalog
	log     *zap.Logger
}

func defaultPlans() []PlanSpec {
	return []PlanSpec{
		{Code: "trial", Name: "Free Trial", PriceKobo: 0, DurationDays: 7, AICredits: 5, DailyCacheLimit: 10, Trial: true},
		{Code: "monthly", Name: "Monthly", PriceKobo: 300000, DurationDays: 30, AICredits: 60, DailyCacheLimit: 50},
		{Code: "quarterly", Name: "Quarterly", PriceKobo: 800000, DurationDays: 90, AICredits: 200, DailyCacheLimit: 50},
		{Code: "yearly", Name: "Yearly", PriceKobo: 3000000, DurationDays: 365, AICredits: 900, DailyCacheLimit: 100},
	}
}

// NewPlanCatalogHolder loads plans.yml if present, falling back to the
// built-in catalog, and watches the file for changes.
func NewPlanCatalogHolder(cfg Config, log *zap.Logger) *PlanCatalogHolder {
	h := &PlanCatalogHolder{log: log.Named("config.plans")}

	v := viper.New()
	v.SetConfigName("plans")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/taxguide")

	graceDefault := time.Duration(cfg.GraceWindowDays) * 24 * time.Hour

	if err := v.ReadInConfig(); err != nil {
		h.log.Info("plan catalog file not found, using defaults")
		h.catalog = PlanCatalog{GraceWindow: graceDefault, Plans: defaultPlans()}
		return h
	}

	h.catalog = readCatalog(v, graceDefault)

	v.OnConfigChange(func(_ fsnotify.Event) {
		reloaded := readCatalog(v, graceDefault)
		h.mu.Lock()
		h.catalog = reloaded
		h.mu.Unlock()
		h.log.Info("plan catalog reloaded", zap.Int("plans", len(reloaded.Plans)))
	})
	v.WatchConfig()

	return h
}

func readCatalog(v *viper.Viper, graceDefault time.Duration) PlanCatalog {
	cat := PlanCatalog{GraceWindow: graceDefault}
	if days := v.GetInt("grace_window_days"); days > 0 {
		cat.GraceWindow = time.Duration(days) * 24 * time.Hour
	}
	var plans []PlanSpec
	if err := v.UnmarshalKey("plans", &plans); err != nil || len(plans) == 0 {
		cat.Plans = defaultPlans()
		return cat
	}
	cat.Plans = plans
	return cat
}

// Catalog returns the current catalog snapshot.
func (h *PlanCatalogHolder) Catalog() PlanCatalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalog
}

// Plan looks up a plan by code.
func (h *PlanCatalogHolder) Plan(code string) (PlanSpec, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.catalog.Plans {
		if p.Code == code {
			return p, true
		}
	}
	return PlanSpec{}, false
}

// GraceWindow returns the configured grace period.
func (h *PlanCatalogHolder) GraceWindow() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalog.GraceWindow
}
