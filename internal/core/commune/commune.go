package commune

import "context"

// Issuing-service codes used until a real commune/city catalog is wired in.
const (
	PlaceholderCommune = 95
	PlaceholderCity    = 76
)

// Location holds the numeric commune and city codes the issuing service expects.
type Location struct {
	Commune int
	City    int
}

// Resolver maps free-text commune and city names (as typed in a shipping
// address) to issuing-service codes.
type Resolver interface {
	Resolve(ctx context.Context, commune, city string) (Location, error)
}

// Placeholder resolves every address to a fixed location.
type Placeholder struct {
	Location Location
}

// NewPlaceholder returns a resolver that always answers with the given codes.
// Zero values fall back to the placeholder sentinels.
func NewPlaceholder(communeCode, cityCode int) Placeholder {
	if communeCode == 0 {
		communeCode = PlaceholderCommune
	}
	if cityCode == 0 {
		cityCode = PlaceholderCity
	}
	return Placeholder{Location: Location{Commune: communeCode, City: cityCode}}
}

func (p Placeholder) Resolve(_ context.Context, _, _ string) (Location, error) {
	return p.Location, nil
}
