package intercept

import (
	"net/http"
	"time"

	"github.com/phrazzld/vigil/internal/cache"
)

// DefaultPartitions declares the partitions the agent registers at install
// time, one per request class. Budgets follow the observed production
// configuration: small bounded partitions for pages and images, a larger
// long-lived one for fonts.
func DefaultPartitions() []cache.Partition {
	admit := func(class Class) func(*http.Request) bool {
		return func(req *http.Request) bool {
			return Classify(req) == class
		}
	}

	return []cache.Partition{
		{
			Name:     ClassNavigation.String(),
			Strategy: cache.NetworkFirst,
			Policy: cache.Policy{
				MaxEntries:        30,
				MaxAge:            24 * time.Hour,
				PurgeOnQuotaError: true,
			},
			Admit: admit(ClassNavigation),
		},
		{
			Name:     ClassImage.String(),
			Strategy: cache.CacheFirst,
			Policy: cache.Policy{
				MaxEntries:        60,
				MaxAge:            30 * 24 * time.Hour,
				PurgeOnQuotaError: true,
			},
			Admit: admit(ClassImage),
		},
		{
			Name:     ClassAsset.String(),
			Strategy: cache.StaleWhileRevalidate,
			Policy: cache.Policy{
				MaxEntries:        100,
				MaxAge:            7 * 24 * time.Hour,
				PurgeOnQuotaError: true,
			},
			Admit: admit(ClassAsset),
		},
		{
			Name:     ClassFont.String(),
			Strategy: cache.CacheFirst,
			Policy: cache.Policy{
				MaxEntries:        30,
				MaxAge:            365 * 24 * time.Hour,
				PurgeOnQuotaError: true,
			},
			Admit: admit(ClassFont),
		},
	}
}
