package domain

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resource shapes the extractor recognizes. Everything else is inert.
const (
	routeAPIVersion   = "route.openshift.io/v1"
	routeKind         = "Route"
	ingressAPIVersion = "networking.k8s.io/v1"
	ingressKind       = "Ingress"
)

// resourceHeader is the minimal shape needed to identify a document.
type resourceHeader struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
}

type routeResource struct {
	Spec struct {
		Host string         `yaml:"host"`
		TLS  map[string]any `yaml:"tls"`
	} `yaml:"spec"`
}

type ingressResource struct {
	Spec struct {
		TLS []struct {
			Hosts []string `yaml:"hosts"`
		} `yaml:"tls"`
		Rules []struct {
			Host string `yaml:"host"`
		} `yaml:"rules"`
	} `yaml:"spec"`
}

// ExtractEndpoints derives externally reachable URLs from a rendered
// manifest containing zero or more Kubernetes resource documents.
//
// Routes (route.openshift.io/v1) contribute one URL when spec.host is set;
// the scheme is https iff spec.tls is present and non-empty. Ingresses
// (networking.k8s.io/v1) contribute one URL per rule with a host; the scheme
// is https iff some spec.tls entry lists that exact host. URLs are returned
// in document order, then rule order within a document.
//
// The function never fails: documents that do not parse, parse to null, or
// lack a kind are skipped individually.
func ExtractEndpoints(manifest []byte) []string {
	var urls []string
	for _, doc := range splitDocuments(manifest) {
		var header resourceHeader
		if err := yaml.Unmarshal(doc, &header); err != nil {
			continue
		}
		if header.Kind == "" {
			continue
		}
		switch {
		case header.APIVersion == routeAPIVersion && header.Kind == routeKind:
			urls = append(urls, routeURLs(doc)...)
		case header.APIVersion == ingressAPIVersion && header.Kind == ingressKind:
			urls = append(urls, ingressURLs(doc)...)
		}
	}
	return urls
}

func routeURLs(doc []byte) []string {
	var route routeResource
	if err := yaml.Unmarshal(doc, &route); err != nil {
		return nil
	}
	if route.Spec.Host == "" {
		return nil
	}
	return []string{endpointURL(route.Spec.Host, len(route.Spec.TLS) > 0)}
}

func ingressURLs(doc []byte) []string {
	var ingress ingressResource
	if err := yaml.Unmarshal(doc, &ingress); err != nil {
		return nil
	}

	tlsHosts := make(map[string]struct{})
	for _, tls := range ingress.Spec.TLS {
		for _, host := range tls.Hosts {
			tlsHosts[host] = struct{}{}
		}
	}

	var urls []string
	for _, rule := range ingress.Spec.Rules {
		if rule.Host == "" {
			continue
		}
		_, tls := tlsHosts[rule.Host]
		urls = append(urls, endpointURL(rule.Host, tls))
	}
	return urls
}

func endpointURL(host string, tls bool) string {
	if tls {
		return "https://" + host
	}
	return "http://" + host
}

// Document separator: a line consisting of "---" with optional trailing
// whitespace. Splitting by hand (instead of a streaming decoder) keeps parse
// failures scoped to a single document rather than aborting the stream.
var documentSeparator = regexp.MustCompile(`(?m)^---\s*$`)

func splitDocuments(manifest []byte) [][]byte {
	parts := documentSeparator.Split(string(manifest), -1)
	docs := make([][]byte, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		docs = append(docs, []byte(part))
	}
	return docs
}
