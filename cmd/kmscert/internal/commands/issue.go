package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hongkongkiwi/kmscert/internal/issuer"
	"github.com/hongkongkiwi/kmscert/internal/pki"
	"github.com/hongkongkiwi/kmscert/internal/sink"
)

// CertConfig mirrors the issue flags for the --config file overlay.
type CertConfig struct {
	KMSKeyID     string   `yaml:"kmsKeyId" json:"kmsKeyId"`
	KeyFile      string   `yaml:"keyFile" json:"keyFile"`
	CommonName   string   `yaml:"commonName" json:"commonName"`
	Country      string   `yaml:"country" json:"country"`
	State        string   `yaml:"state" json:"state"`
	Locality     string   `yaml:"locality" json:"locality"`
	Organization string   `yaml:"organization" json:"organization"`
	OrgUnit      string   `yaml:"organizationalUnit" json:"organizationalUnit"`
	Email        string   `yaml:"email" json:"email"`
	SANs         []string `yaml:"sans" json:"sans"`
	ValidityDays int      `yaml:"validityDays" json:"validityDays"`
	Serial       int64    `yaml:"serial" json:"serial"`
	CA           bool     `yaml:"ca" json:"ca"`
	Output       string   `yaml:"output" json:"output"`
	Region       string   `yaml:"region" json:"region"`
}

type IssueCmd struct {
	KMSKeyID       string   `help:"KMS key ID, ARN, or alias" short:"k"`
	CertCommonName string   `help:"Certificate subject common name" short:"c"`
	ValidityDays   int      `help:"Certificate validity in days" short:"v" default:"9125"`
	Output         string   `help:"Output destination" short:"o" default:"file:self_signed_certificate.pem"`
	CertCountry    string   `help:"Certificate subject country (C)"`
	CertState      string   `help:"Certificate subject state or province (ST)"`
	CertLocality   string   `help:"Certificate subject locality (L)"`
	CertOrg        string   `help:"Certificate subject organization (O)"`
	CertOrgUnit    string   `help:"Certificate subject organizational unit (OU)"`
	CertEmail      string   `help:"Certificate subject email address"`
	CertSan        []string `help:"Subject alternative DNS name (repeatable)"`
	CertSerial     int64    `help:"Certificate serial number" default:"1"`
	CertCA         bool     `help:"Mark the certificate as a CA" default:"false"`
	RequireRSA     bool     `help:"Fail unless the signing key is RSA" default:"false"`
	KeyFile        string   `help:"Local PEM private key file instead of KMS"`
	Region         string   `help:"AWS region" env:"AWS_REGION"`
	AWSEndpoint    string   `help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:""`
	Config         string   `help:"YAML/JSON config file path"`
}

func (cmd *IssueCmd) Run(ctx context.Context, globals *Globals) error {
	if cmd.Config != "" {
		if err := cmd.loadConfigFile(); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if cmd.CertCommonName == "" {
		return fmt.Errorf("common name is required (use --cert-common-name or --config file)")
	}
	if cmd.KMSKeyID == "" && cmd.KeyFile == "" {
		return fmt.Errorf("a signing key is required (use --kms-key-id or --key-file)")
	}
	if cmd.KMSKeyID != "" && cmd.KeyFile != "" {
		return fmt.Errorf("--kms-key-id and --key-file are mutually exclusive")
	}

	req := &issuer.Request{
		KMSKeyID:    cmd.KMSKeyID,
		KeyFile:     cmd.KeyFile,
		Region:      cmd.Region,
		AWSEndpoint: cmd.AWSEndpoint,
		RequireRSA:  cmd.RequireRSA,
		Certificate: pki.CertificateRequest{
			CommonName:         cmd.CertCommonName,
			Country:            cmd.CertCountry,
			State:              cmd.CertState,
			Locality:           cmd.CertLocality,
			Organization:       cmd.CertOrg,
			OrganizationalUnit: cmd.CertOrgUnit,
			EmailAddress:       cmd.CertEmail,
			DNSNames:           cmd.CertSan,
			ValidityDays:       cmd.ValidityDays,
			SerialNumber:       cmd.CertSerial,
			IsCA:               cmd.CertCA,
		},
		Output: cmd.Output,
	}

	s := sink.New(sink.Options{AWSEndpoint: cmd.AWSEndpoint})

	return issuer.New(s).Issue(ctx, req)
}

func (cmd *IssueCmd) loadConfigFile() error {
	data, err := os.ReadFile(cmd.Config)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config CertConfig

	// Determine file format by extension
	if strings.HasSuffix(strings.ToLower(cmd.Config), ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// Config file values take precedence over flags
	if config.KMSKeyID != "" {
		cmd.KMSKeyID = config.KMSKeyID
	}
	if config.KeyFile != "" {
		cmd.KeyFile = config.KeyFile
	}
	if config.CommonName != "" {
		cmd.CertCommonName = config.CommonName
	}
	if config.Country != "" {
		cmd.CertCountry = config.Country
	}
	if config.State != "" {
		cmd.CertState = config.State
	}
	if config.Locality != "" {
		cmd.CertLocality = config.Locality
	}
	if config.Organization != "" {
		cmd.CertOrg = config.Organization
	}
	if config.OrgUnit != "" {
		cmd.CertOrgUnit = config.OrgUnit
	}
	if config.Email != "" {
		cmd.CertEmail = config.Email
	}
	if len(config.SANs) > 0 {
		cmd.CertSan = config.SANs
	}
	if config.ValidityDays > 0 {
		cmd.ValidityDays = config.ValidityDays
	}
	if config.Serial > 0 {
		cmd.CertSerial = config.Serial
	}
	if config.CA {
		cmd.CertCA = true
	}
	if config.Output != "" {
		cmd.Output = config.Output
	}
	if config.Region != "" {
		cmd.Region = config.Region
	}

	return nil
}
