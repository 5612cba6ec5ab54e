package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	d, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if d.MinConn != defaultMinConn {
		t.Fatalf("MinConn = %d, want default %d (regression: must read %s, not %s)", d.MinConn, defaultMinConn, envMinConn, envSSLMode)
	}
	if d.ConnectTimeout != defaultConnectTimeout {
		t.Fatalf("ConnectTimeout = %v, want default %v", d.ConnectTimeout, defaultConnectTimeout)
	}
}

func TestMinConnReadsItsOwnEnvVar(t *testing.T) {
	t.Setenv(envMinConn, "5")
	t.Setenv(envSSLMode, "require")
	d, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if d.MinConn != 5 {
		t.Fatalf("MinConn = %d, want 5 (must not be overridden by TRUSTD_DB_SSLMODE)", d.MinConn)
	}
	if d.SSLMode != SSLRequire {
		t.Fatalf("SSLMode = %q, want require", d.SSLMode)
	}
}

func TestConnectTimeoutOwnDefault(t *testing.T) {
	t.Setenv(envConnectTimeout, "not-a-duration")
	d, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if d.ConnectTimeout != defaultConnectTimeout {
		t.Fatalf("ConnectTimeout fallback = %v, want its own default %v (not idle_timeout's)", d.ConnectTimeout, defaultConnectTimeout)
	}
}

func TestInvalidSSLModeErrors(t *testing.T) {
	t.Setenv(envSSLMode, "bogus")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for invalid sslmode")
	}
}

func TestServerFromEnvDefaults(t *testing.T) {
	s := ServerFromEnv()
	if s.ListenAddr != defaultListenAddr || s.StorageDir != defaultStorageDir || s.UploadLimit != defaultUploadLimit {
		t.Fatalf("ServerFromEnv() = %+v, want the package defaults", s)
	}
}

func TestServerFromEnvOverrides(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envUploadLimit, "1024")
	s := ServerFromEnv()
	if s.ListenAddr != ":9090" {
		t.Fatalf("ListenAddr = %q, want :9090", s.ListenAddr)
	}
	if s.UploadLimit != 1024 {
		t.Fatalf("UploadLimit = %d, want 1024", s.UploadLimit)
	}
}
