package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration. When the certificates
// come from Vault the material check is deferred until they are applied.
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if err := validateTLSVersion(tls.MinVersion); err != nil {
		return err
	}
	if err := validateClientAuthPolicy(tls.ClientAuthPolicy); err != nil {
		return err
	}

	sources := []struct{ name, file, content string }{
		{"cert", tls.CertFile, tls.CertContent},
		{"key", tls.KeyFile, tls.KeyContent},
		{"ca", tls.CAFile, tls.CAContent},
	}
	for _, src := range sources {
		if src.file != "" && src.content != "" {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", src.name, src.name)
		}
	}

	if c.TLSFromVault() {
		return nil
	}
	return tls.ValidateMaterial()
}

// TLSFromVault reports whether TLS material is expected from Vault.
func (c *Config) TLSFromVault() bool {
	return c.Vault.Enabled && c.Vault.Secrets.TLSCerts != ""
}

// ValidateMaterial checks that the certificate, key and (for mutual mode)
// CA the configured mode needs are present as files or content.
func (t TLSConfig) ValidateMaterial() error {
	if t.Mode == "disabled" {
		return nil
	}
	if (t.CertFile == "" && t.CertContent == "") || (t.KeyFile == "" && t.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", t.Mode)
	}
	if t.Mode == "mutual" && t.CAFile == "" && t.CAContent == "" {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	return nil
}

// Files lists the on-disk TLS files, for reload watching.
func (t TLSConfig) Files() []string {
	var files []string
	for _, f := range []string{t.CertFile, t.KeyFile, t.CAFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}
