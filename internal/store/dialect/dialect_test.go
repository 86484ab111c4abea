package dialect

import (
	"errors"
	"testing"
)

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: "sqlite", want: "sqlite"},
		{driver: "sqlite3", want: "sqlite"},
		{driver: "postgres", want: "postgres"},
		{driver: "pgx", want: "postgres"},
		{driver: "mysql", want: "mysql"},
		{driver: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := FromDriverName(tt.driver)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FromDriverName(%q) error = nil, want error", tt.driver)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromDriverName(%q) error = %v", tt.driver, err)
			}
			if d.Name() != tt.want {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg, err := FromDriverName("postgres")
	if err != nil {
		t.Fatalf("FromDriverName() error = %v", err)
	}

	got := pg.Rebind("SELECT * FROM documents WHERE tenant_id = ? AND id = ?")
	want := "SELECT * FROM documents WHERE tenant_id = $1 AND id = $2"
	if got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}

	lite, err := FromDriverName("sqlite")
	if err != nil {
		t.Fatalf("FromDriverName() error = %v", err)
	}
	q := "SELECT 1 WHERE a = ?"
	if got := lite.Rebind(q); got != q {
		t.Errorf("Rebind() = %q, want unchanged", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		driver string
		err    error
		want   bool
	}{
		{driver: "sqlite", err: errors.New("constraint failed: UNIQUE constraint failed: documents.tenant_id (1555)"), want: true},
		{driver: "sqlite", err: errors.New("database is locked"), want: false},
		{driver: "postgres", err: errors.New(`duplicate key value violates unique constraint "documents_pkey" (SQLSTATE 23505)`), want: true},
		{driver: "postgres", err: errors.New("connection refused"), want: false},
		{driver: "mysql", err: errors.New("Error 1062 (23000): Duplicate entry 'acme-products-1' for key 'PRIMARY'"), want: true},
		{driver: "mysql", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := FromDriverName(tt.driver)
			if err != nil {
				t.Fatalf("FromDriverName() error = %v", err)
			}
			if got := d.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestJSONExtract(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{driver: "sqlite", want: "json_extract(fields, '$.name')"},
		{driver: "postgres", want: "(fields::jsonb ->> 'name')"},
		{driver: "mysql", want: "JSON_UNQUOTE(JSON_EXTRACT(fields, '$.name'))"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := FromDriverName(tt.driver)
			if err != nil {
				t.Fatalf("FromDriverName() error = %v", err)
			}
			if got := d.JSONExtract("fields", "name"); got != tt.want {
				t.Errorf("JSONExtract() = %q, want %q", got, tt.want)
			}
		})
	}
}
