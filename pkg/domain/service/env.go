package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/opst/datahub-operator/pkg/domain"
)

func saslJAASConfig(username, password string) string {
	return fmt.Sprintf(
		`org.apache.kafka.common.security.scram.ScramLoginModule required username=%q password=%q;`,
		username, password,
	)
}

func jdbcURL(conn domain.DatabaseConnection) string {
	return fmt.Sprintf(
		"jdbc:postgresql://%s:%s/%s", conn.Host, conn.Port, conn.DBName,
	)
}

func mergeEnv(env map[string]string, overlay map[string]string) map[string]string {
	for k, v := range overlay {
		env[k] = v
	}
	return env
}

// proxyEnv compiles the JVM-style proxy variables frontend needs to reach
// the OIDC provider from behind an outbound proxy.
//
// Ref: https://datahubproject.io/docs/authentication/guides/sso/configure-oidc-behind-proxy/
func proxyEnv(sctx Context, gmsHost string) map[string]string {
	vars := map[string]string{}

	noProxyHosts := []string{"localhost"}
	noProxyHosts = append(noProxyHosts, sctx.NoProxy...)
	if gmsHost != "" {
		noProxyHosts = append(noProxyHosts, gmsHost)
	}

	if sctx.HTTPProxy != "" {
		if proxy, err := url.Parse(sctx.HTTPProxy); err == nil {
			vars["HTTP_PROXY_HOST"] = proxy.Hostname()
			vars["HTTP_PROXY_PORT"] = proxy.Port()
		}
	}
	if sctx.HTTPSProxy != "" {
		if proxy, err := url.Parse(sctx.HTTPSProxy); err == nil {
			vars["HTTPS_PROXY_HOST"] = proxy.Hostname()
			vars["HTTPS_PROXY_PORT"] = proxy.Port()
		}
	}

	vars["HTTP_NON_PROXY_HOSTS"] = strings.Join(noProxyHosts, "|")
	return vars
}

// SplitCertificates splits a PEM bundle into its component certificates.
//
// The input is not validated for correctness.
func SplitCertificates(certificates string) []string {
	const footer = "-----END CERTIFICATE-----"

	certs := []string{}
	for _, cert := range strings.Split(certificates, footer) {
		cert = strings.TrimSpace(cert)
		if cert == "" {
			continue
		}
		certs = append(certs, cert+"\n"+footer)
	}
	return certs
}

// opensearchRootCA picks the root certificate out of the CA bundle of the
// opensearch relation: the bundle carries (leaf, root) in that order.
func opensearchRootCA(conn domain.OpensearchConnection) (string, error) {
	certs := SplitCertificates(conn.TLSCA)
	if len(certs) < 2 {
		return "", domain.NewErrImproperSecret(
			"opensearch tls-ca bundle has %d certificates, expected at least 2", len(certs),
		)
	}
	return certs[1], nil
}
