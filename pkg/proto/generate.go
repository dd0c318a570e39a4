// Package proto holds the generated DetectionHandler messages and gRPC service.
package proto

//go:generate protoc -I ../../proto --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative detection_handler.proto
