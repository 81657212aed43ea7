package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func testContext(t *testing.T, target string, setup func(*http.Request, echo.Context)) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(req, c)
	}
	return c
}

func TestResolveTenant(t *testing.T) {
	cases := []struct {
		name   string
		target string
		setup  func(*http.Request, echo.Context)
		want   string
	}{
		{
			name:   "default when nothing set",
			target: "/",
			want:   "default",
		},
		{
			name:   "from header",
			target: "/",
			setup:  func(req *http.Request, c echo.Context) { req.Header.Set("X-Tenant-ID", "clinic_abc") },
			want:   "clinic_abc",
		},
		{
			name:   "from query parameter",
			target: "/?tenant_id=clinic_xyz",
			want:   "clinic_xyz",
		},
		{
			name:   "jwt claim wins over header and query",
			target: "/?tenant_id=query",
			setup: func(req *http.Request, c echo.Context) {
				req.Header.Set("X-Tenant-ID", "header")
				c.Set("jwt_tenant_id", "jwt")
			},
			want: "jwt",
		},
		{
			name:   "header wins over query",
			target: "/?tenant_id=query",
			setup:  func(req *http.Request, c echo.Context) { req.Header.Set("X-Tenant-ID", "header") },
			want:   "header",
		},
		{
			name:   "empty jwt claim falls through",
			target: "/",
			setup: func(req *http.Request, c echo.Context) {
				c.Set("jwt_tenant_id", "")
				req.Header.Set("X-Tenant-ID", "header")
			},
			want: "header",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testContext(t, tc.target, tc.setup)
			if got := resolveTenant(c, "default"); got != tc.want {
				t.Errorf("resolveTenant = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTenantIDPattern(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"clinic_1", true},
		{"ABC", true},
		{"a1b2c3", true},
		{"a", true},
		{"", false},
		{"a-b", false},
		{"a.b", false},
		{"a b", false},
		{"'; DROP TABLE patients", false},
		{"tenant@1", false},
	}
	for _, tc := range cases {
		if got := tenantIDPattern.MatchString(tc.id); got != tc.valid {
			t.Errorf("tenantIDPattern(%q) = %v, want %v", tc.id, got, tc.valid)
		}
	}
}

func TestCreateTenantSchema_RejectsInvalidIDs(t *testing.T) {
	for _, id := range []string{"with-dash", "with.dot", "with space", "drop;table", ""} {
		if err := CreateTenantSchema(context.Background(), nil, id, ""); err == nil {
			t.Errorf("expected error for tenant identifier %q", id)
		}
	}
}

func TestContextAccessors(t *testing.T) {
	if ConnFromContext(context.Background()) != nil {
		t.Error("expected nil conn from empty context")
	}
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil tx from empty context")
	}
	if TenantFromContext(context.Background()) != "" {
		t.Error("expected empty tenant from empty context")
	}

	ctx := context.WithValue(context.Background(), TenantIDKey, "clinic_a")
	if got := TenantFromContext(ctx); got != "clinic_a" {
		t.Errorf("TenantFromContext = %q, want clinic_a", got)
	}

	// Wrong types are ignored rather than panicking.
	ctx = context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if ConnFromContext(ctx) != nil {
		t.Error("expected nil conn for wrong type")
	}
	ctx = context.WithValue(context.Background(), DBTxKey, 42)
	if TxFromContext(ctx) != nil {
		t.Error("expected nil tx for wrong type")
	}
}

func TestWithTx_RequiresConnection(t *testing.T) {
	if _, _, err := WithTx(context.Background()); err == nil {
		t.Error("expected error when no connection in context")
	}
}
