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

package source

import (
	"context"
	"fmt"

	"github.com/mfreeman451/systempulse/pkg/grpc"
	"github.com/mfreeman451/systempulse/pkg/models"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCSource calls a unary method taking google.protobuf.Empty and returning
// a google.protobuf.Struct.
type GRPCSource struct {
	name   string
	method string
	client *grpc.ClientConn
}

func NewGRPCSource(ctx context.Context, cfg *Config, opts ...grpc.ClientOption) (*GRPCSource, error) {
	conn := &grpc.ConnectionConfig{Address: cfg.Address}
	if cfg.Security != nil {
		conn.Security = *cfg.Security
	}

	client, err := grpc.NewClient(ctx, conn, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = GetSnapshotMethod
	}

	return &GRPCSource{
		name:   cfg.name(cfg.Address),
		method: method,
		client: client,
	}, nil
}

func (s *GRPCSource) Name() string {
	return s.name
}

func (s *GRPCSource) Fetch(ctx context.Context) (models.Readings, error) {
	reply := &structpb.Struct{}

	if err := s.client.Invoke(ctx, s.method, &emptypb.Empty{}, reply); err != nil {
		return nil, err
	}

	readings := Flatten(reply.AsMap())
	if len(readings) == 0 {
		return nil, errNoReadings
	}

	return readings, nil
}

// Client exposes the connection so a health probe can share it.
func (s *GRPCSource) Client() *grpc.ClientConn {
	return s.client
}

func (s *GRPCSource) Close() error {
	return s.client.Close()
}
