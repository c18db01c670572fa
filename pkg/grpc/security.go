/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package grpc provides transport security, a client connection wrapper and
// the health-serving gRPC server used by systempulse.
package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	SecurityModeNone   models.SecurityMode = "none"
	SecurityModeSpiffe models.SecurityMode = "spiffe"
	SecurityModeMTLS   models.SecurityMode = "mtls"

	defaultWorkloadSocket = "unix:/run/spire/sockets/agent.sock"
)

// NoSecurityProvider implements SecurityProvider with plaintext transport.
type NoSecurityProvider struct{}

func (*NoSecurityProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) Close() error {
	return nil
}

// needs reports which sides of a connection a role requires credentials for.
func needs(role models.ServiceRole) (client, server bool, err error) {
	switch role {
	case models.RoleClient:
		return true, false, nil
	case models.RoleServer:
		return false, true, nil
	case models.RoleBoth, "":
		return true, true, nil
	default:
		return false, false, fmt.Errorf("%w: %s", errInvalidServiceRole, role)
	}
}

// MTLSProvider implements SecurityProvider with mutual TLS. Certificates are
// read from CertDir: root.pem, client.pem/client-key.pem and
// server.pem/server-key.pem.
type MTLSProvider struct {
	config      *models.SecurityConfig
	clientCreds credentials.TransportCredentials
	serverCreds credentials.TransportCredentials
	needsClient bool
	needsServer bool
}

func NewMTLSProvider(config *models.SecurityConfig) (*MTLSProvider, error) {
	if config == nil {
		return nil, errSecurityConfigRequired
	}

	needsClient, needsServer, err := needs(config.Role)
	if err != nil {
		return nil, err
	}

	provider := &MTLSProvider{
		config:      config,
		needsClient: needsClient,
		needsServer: needsServer,
	}

	log.Printf("Initializing mTLS provider - Role: %s, NeedsClient: %v, NeedsServer: %v",
		config.Role, needsClient, needsServer)

	if needsClient {
		provider.clientCreds, err = loadClientCredentials(config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCreds, err)
		}
	}

	if needsServer {
		provider.serverCreds, err = loadServerCredentials(config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCreds, err)
		}
	}

	return provider, nil
}

func (*MTLSProvider) Close() error {
	return nil
}

func (p *MTLSProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	if !p.needsClient {
		return nil, errServiceNotClient
	}

	return grpc.WithTransportCredentials(p.clientCreds), nil
}

func (p *MTLSProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	if !p.needsServer {
		return nil, errServiceNotServer
	}

	return grpc.Creds(p.serverCreds), nil
}

func loadCAPool(certDir string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(filepath.Join(certDir, "root.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadCACert, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errFailedToAppendCACert
	}

	return pool, nil
}

func loadKeyPair(certDir, name string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certDir, name+".pem"),
		filepath.Join(certDir, name+"-key.pem"))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w %s: %w", errFailedToLoadCert, name, err)
	}

	return cert, nil
}

func loadClientCredentials(config *models.SecurityConfig) (credentials.TransportCredentials, error) {
	log.Printf("Loading client credentials from %s", config.CertDir)

	certificate, err := loadKeyPair(config.CertDir, "client")
	if err != nil {
		return nil, err
	}

	caPool, err := loadCAPool(config.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		RootCAs:      caPool,
		ServerName:   config.ServerName,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func loadServerCredentials(config *models.SecurityConfig) (credentials.TransportCredentials, error) {
	log.Printf("Loading server credentials from %s", config.CertDir)

	certificate, err := loadKeyPair(config.CertDir, "server")
	if err != nil {
		return nil, err
	}

	caPool, err := loadCAPool(config.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

// SpiffeProvider implements SecurityProvider using the SPIFFE workload API.
type SpiffeProvider struct {
	config    *models.SecurityConfig
	client    *workloadapi.Client
	source    *workloadapi.X509Source
	closeOnce sync.Once
}

func NewSpiffeProvider(ctx context.Context, config *models.SecurityConfig) (*SpiffeProvider, error) {
	if config == nil {
		return nil, errSecurityConfigRequired
	}

	if config.WorkloadSocket == "" {
		config.WorkloadSocket = defaultWorkloadSocket
	}

	client, err := workloadapi.New(ctx, workloadapi.WithAddr(config.WorkloadSocket))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedWorkloadAPIClient, err)
	}

	source, err := workloadapi.NewX509Source(ctx, workloadapi.WithClient(client))
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: %w", errFailedToCreateX509Source, err)
	}

	return &SpiffeProvider{
		config: config,
		client: client,
		source: source,
	}, nil
}

// clientAuthorizer pins the peer to ServerName when it is a SPIFFE ID and
// otherwise accepts any member of the trust domain.
func clientAuthorizer(config *models.SecurityConfig) (tlsconfig.Authorizer, error) {
	if strings.HasPrefix(config.ServerName, "spiffe://") {
		id, err := spiffeid.FromString(config.ServerName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidServerSPIFFEID, err)
		}

		return tlsconfig.AuthorizeID(id), nil
	}

	return memberAuthorizer(config.TrustDomain)
}

func memberAuthorizer(trustDomain string) (tlsconfig.Authorizer, error) {
	if trustDomain == "" {
		return tlsconfig.AuthorizeAny(), nil
	}

	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidTrustDomain, err)
	}

	return tlsconfig.AuthorizeMemberOf(td), nil
}

func (p *SpiffeProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	authorizer, err := clientAuthorizer(p.config)
	if err != nil {
		return nil, err
	}

	tlsConfig := tlsconfig.MTLSClientConfig(p.source, p.source, authorizer)

	return grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)), nil
}

func (p *SpiffeProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	authorizer, err := memberAuthorizer(p.config.TrustDomain)
	if err != nil {
		return nil, err
	}

	tlsConfig := tlsconfig.MTLSServerConfig(p.source, p.source, authorizer)

	return grpc.Creds(credentials.NewTLS(tlsConfig)), nil
}

func (p *SpiffeProvider) Close() error {
	var err error

	p.closeOnce.Do(func() {
		if p.source != nil {
			if err = p.source.Close(); err != nil {
				log.Printf("Failed to close X.509 source: %v", err)

				return
			}
		}

		if p.client != nil {
			err = p.client.Close()
		}
	})

	return err
}

// NewSecurityProvider creates the provider for config.Mode. A nil config or
// an empty mode means plaintext.
func NewSecurityProvider(ctx context.Context, config *models.SecurityConfig) (SecurityProvider, error) {
	if config == nil || config.Mode == "" {
		return &NoSecurityProvider{}, nil
	}

	log.Printf("Creating security provider with mode: %s", config.Mode)

	switch config.Mode {
	case SecurityModeNone:
		return &NoSecurityProvider{}, nil
	case SecurityModeMTLS:
		return NewMTLSProvider(config)
	case SecurityModeSpiffe:
		return NewSpiffeProvider(ctx, config)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, config.Mode)
	}
}
