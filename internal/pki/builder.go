package pki

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"
)

// Subject attribute OIDs, in emission order. emailAddress is the PKCS#9
// attribute and must be an IA5String.
var (
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState              = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidEmailAddress       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
)

// CertificateRequest describes the self-signed certificate to issue.
// Built once from caller input and not mutated afterwards.
type CertificateRequest struct {
	CommonName         string
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
	EmailAddress       string
	DNSNames           []string
	ValidityDays       int
	SerialNumber       int64
	IsCA               bool
}

// Validate checks the request before any signing work begins.
func (r *CertificateRequest) Validate() error {
	if r.CommonName == "" {
		return fmt.Errorf("common name is required")
	}
	if r.ValidityDays < 1 {
		return fmt.Errorf("validity days must be at least 1, got %d", r.ValidityDays)
	}
	if r.SerialNumber < 1 {
		return fmt.Errorf("serial number must be at least 1, got %d", r.SerialNumber)
	}
	return nil
}

// subject assembles the subject RDN sequence. Attribute order is fixed
// for interoperability with previously issued certificates: C, ST, L, O,
// OU before CN, emailAddress after it. Empty attributes are skipped.
func (r *CertificateRequest) subject() pkix.Name {
	var names []pkix.AttributeTypeAndValue

	optional := []struct {
		oid   asn1.ObjectIdentifier
		value string
	}{
		{oidCountry, r.Country},
		{oidState, r.State},
		{oidLocality, r.Locality},
		{oidOrganization, r.Organization},
		{oidOrganizationalUnit, r.OrganizationalUnit},
	}

	for _, attr := range optional {
		if attr.value != "" {
			names = append(names, pkix.AttributeTypeAndValue{Type: attr.oid, Value: attr.value})
		}
	}

	names = append(names, pkix.AttributeTypeAndValue{Type: oidCommonName, Value: r.CommonName})

	if r.EmailAddress != "" {
		names = append(names, pkix.AttributeTypeAndValue{
			Type: oidEmailAddress,
			Value: asn1.RawValue{
				Tag:   asn1.TagIA5String,
				Bytes: []byte(r.EmailAddress),
			},
		})
	}

	return pkix.Name{ExtraNames: names}
}

// BuildCertificate produces a DER-encoded self-signed certificate for the
// request, signed by the given handle. The template doubles as its own
// parent, so issuer and subject are identical.
func BuildCertificate(req *CertificateRequest, signer CertificateSigner) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	alg := signer.Algorithm()
	notBefore := time.Now().UTC()

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(req.SerialNumber),
		Subject:               req.subject(),
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(time.Duration(req.ValidityDays) * 24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  req.IsCA,
		SignatureAlgorithm:    alg.X509Algorithm,
	}

	// Only a non-empty SAN list emits the extension.
	if len(req.DNSNames) > 0 {
		template.DNSNames = req.DNSNames
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return der, nil
}
