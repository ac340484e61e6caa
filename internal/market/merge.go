package market

import "sort"

// identityKey defines "the same logical offer" for merge purposes. Unset
// optional fields are tracked separately from their zero values so a missing
// region never matches an explicitly empty one.
type identityKey struct {
	providerID  string
	gpu         string
	region      string
	regionSet   bool
	sku         string
	skuSet      bool
	onDemand    bool
	onDemandSet bool
	spot        bool
	spotSet     bool
}

func keyOf(rec GpuPrice) identityKey {
	k := identityKey{providerID: rec.ProviderID, gpu: rec.GPU}
	if rec.Region != nil {
		k.region, k.regionSet = *rec.Region, true
	}
	if rec.SKU != nil {
		k.sku, k.skuSet = *rec.SKU, true
	}
	if rec.OnDemand != nil {
		k.onDemand, k.onDemandSet = *rec.OnDemand, true
	}
	if rec.Spot != nil {
		k.spot, k.spotSet = *rec.Spot, true
	}
	return k
}

// Merge deduplicates offers sharing an identity key: the strictly cheaper
// record wins; on a price tie the later fetch wins; on a full tie the first
// record encountered is kept. The result is sorted so repeated runs over the
// same multiset of records produce byte-identical artifacts regardless of
// input order.
func Merge(records []GpuPrice) []GpuPrice {
	merged := make(map[identityKey]GpuPrice, len(records))
	for _, rec := range records {
		key := keyOf(rec)
		existing, seen := merged[key]
		if !seen {
			merged[key] = rec
			continue
		}
		if rec.USDPerHour < existing.USDPerHour {
			merged[key] = rec
			continue
		}
		if rec.USDPerHour == existing.USDPerHour && rec.FetchedAt.After(existing.FetchedAt) {
			merged[key] = rec
		}
	}

	out := make([]GpuPrice, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessRecord(out[i], out[j])
	})
	return out
}

// lessRecord orders by (provider_id, gpu, region-or-empty, sku-or-empty),
// then keeps going through the remaining identity fields so distinct keys
// that collide on the primary tuple still sort deterministically.
func lessRecord(a, b GpuPrice) bool {
	if a.ProviderID != b.ProviderID {
		return a.ProviderID < b.ProviderID
	}
	if a.GPU != b.GPU {
		return a.GPU < b.GPU
	}
	ar, br := strOrEmpty(a.Region), strOrEmpty(b.Region)
	if ar != br {
		return ar < br
	}
	as, bs := strOrEmpty(a.SKU), strOrEmpty(b.SKU)
	if as != bs {
		return as < bs
	}
	if x, y := boolRank(a.OnDemand), boolRank(b.OnDemand); x != y {
		return x < y
	}
	if x, y := boolRank(a.Spot), boolRank(b.Spot); x != y {
		return x < y
	}
	return a.USDPerHour < b.USDPerHour
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolRank(b *bool) int {
	switch {
	case b == nil:
		return 0
	case !*b:
		return 1
	default:
		return 2
	}
}
