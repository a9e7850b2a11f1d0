package cache

import "testing"

func TestKeyFormats(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"place", PlaceKey(3), "place:3"},
		{"user", UserKey(7), "user:7"},
		{"category", CategoryKey([]string{"Park", "Museum"}), "category:Museum,Park"},
		{"category single", CategoryKey([]string{"Beach"}), "category:Beach"},
		{"nearby", NearbyKey(-6.17539, 106.82718), "nearby:-6.175,106.827"},
		{"nearby negative zero", NearbyKey(-0.0001, 0.0004), "nearby:0.000,0.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategoryKeyOrderIndependent(t *testing.T) {
	a := CategoryKey([]string{"Museum", "Park"})
	b := CategoryKey([]string{"Park", "Museum"})
	if a != b {
		t.Errorf("expected equal keys, got %q and %q", a, b)
	}
}

func TestCategoryKeyDoesNotMutateInput(t *testing.T) {
	in := []string{"Park", "Museum"}
	CategoryKey(in)
	if in[0] != "Park" || in[1] != "Museum" {
		t.Errorf("input reordered: %v", in)
	}
}

func TestNearbyKeyCollapsesNearbyPoints(t *testing.T) {
	a := NearbyKey(-6.17510, 106.82710)
	b := NearbyKey(-6.17540, 106.82740)
	if a != b {
		t.Errorf("points 0.0003 apart should share a key: %q vs %q", a, b)
	}

	c := NearbyKey(-6.17510+0.0025, 106.82710)
	if a == c {
		t.Errorf("points 0.0025 apart should not share a key: %q", a)
	}
	d := NearbyKey(-6.17510, 106.82710-0.0021)
	if a == d {
		t.Errorf("points 0.0021 apart should not share a key: %q", a)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in     string
		want   Key
		wantOK bool
	}{
		{"user:7", Key{Kind: KindUser, ID: "7"}, true},
		{"place:12", Key{Kind: KindPlace, ID: "12"}, true},
		{"category:A,B", Key{Kind: KindCategory, ID: "A,B"}, true},
		{"nearby:1.000,2.000", Key{Kind: KindNearby, ID: "1.000,2.000"}, true},
		{"category:user:7", Key{Kind: KindCategory, ID: "user:7"}, true},
		{"recommendations_user_7", Key{}, false},
		{"bogus:1", Key{}, false},
		{"", Key{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKey(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseKey(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRoundCoord(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.23449, 1.234},
		{1.23461, 1.235},
		{-1.23461, -1.235},
		{-0.0004, 0},
	}
	for _, tt := range tests {
		if got := RoundCoord(tt.in); got != tt.want {
			t.Errorf("RoundCoord(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
