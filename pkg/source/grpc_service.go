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

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MetricsServiceName = "pulse.v1.MetricsService"
	GetSnapshotMethod  = "/" + MetricsServiceName + "/GetSnapshot"
)

// MetricsServer serves the current readings over gRPC so that one instance
// can act as the metrics source of another.
type MetricsServer interface {
	GetSnapshot(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterMetricsServer registers srv on s.
func RegisterMetricsServer(s grpc.ServiceRegistrar, srv MetricsServer) {
	s.RegisterService(&metricsServiceDesc, srv)
}

func getSnapshotHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(MetricsServer).GetSnapshot(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetSnapshotMethod,
	}

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MetricsServer).GetSnapshot(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

var metricsServiceDesc = grpc.ServiceDesc{
	ServiceName: MetricsServiceName,
	HandlerType: (*MetricsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSnapshot",
			Handler:    getSnapshotHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pulse/v1/metrics.proto",
}
