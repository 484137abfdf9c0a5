package httpapi

import "testing"

func TestStoreIDFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/v1/stores", ""},
		{"/v1/stores/", ""},
		{"/v1/stores/store-1", "store-1"},
		{"/v1/stores/store-1/products", "store-1"},
		{"/v1/stores/store-1/orders/o-1", "store-1"},
		{"/v1/orders/o-1", ""},
		{"/healthz", ""},
	}
	for _, tc := range cases {
		if got := storeIDFromPath(tc.path); got != tc.want {
			t.Errorf("storeIDFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("empty header must fail")
	}
	if _, err := extractBearerToken("Basic abc"); err == nil {
		t.Fatal("non-bearer scheme must fail")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Fatal("empty token must fail")
	}
	token, err := extractBearerToken("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("valid header: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Fatalf("token = %q", token)
	}
}
