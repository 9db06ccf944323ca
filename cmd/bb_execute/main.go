package main

import (
	"context"
	"log"
	"os"
	"sort"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	remoteexecution "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/buildbarn/bb-fleet/pkg/client"
	"github.com/buildbarn/bb-fleet/pkg/configuration/bb_execute"
	"github.com/buildbarn/bb-fleet/pkg/digest"
	"github.com/buildbarn/bb-fleet/pkg/filesystem"
	"github.com/buildbarn/bb-fleet/pkg/global"
	"github.com/buildbarn/bb-fleet/pkg/program"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/google/uuid"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bb_execute runs a single command remotely. The command's standard
// output and standard error are written to those of bb_execute, and
// bb_execute terminates with the command's exit code.
//
// Usage: bb_execute bb_execute.jsonnet command [argument ...]

func main() {
	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if len(os.Args) < 3 {
			return status.Error(codes.InvalidArgument, "Usage: bb_execute bb_execute.jsonnet command [argument ...]")
		}
		var configuration bb_execute.ApplicationConfiguration
		if err := util.UnmarshalConfigurationFromFile(os.Args[1], &configuration); err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %s", os.Args[1])
		}
		grpcClientFactory, err := global.ApplyConfiguration(nil, dependenciesGroup)
		if err != nil {
			return util.StatusWrap(err, "Failed to apply global configuration options")
		}
		grpcClient, err := grpcClientFactory.NewClientFromConfiguration(configuration.GrpcClient)
		if err != nil {
			return util.StatusWrap(err, "Failed to create gRPC client")
		}

		instanceName, err := digest.NewInstanceName(configuration.InstanceName)
		if err != nil {
			return util.StatusWrapf(err, "Invalid instance name %#v", configuration.InstanceName)
		}
		digestFunctionValue := remoteexecution.DigestFunction_SHA256
		if name := configuration.DigestFunction; name != "" {
			value, ok := remoteexecution.DigestFunction_Value_value[name]
			if !ok {
				return status.Errorf(codes.InvalidArgument, "Unknown digest function %#v", name)
			}
			digestFunctionValue = remoteexecution.DigestFunction_Value(value)
		}
		digestFunction, err := instanceName.GetDigestFunction(digestFunctionValue, 0)
		if err != nil {
			return util.StatusWrap(err, "Invalid digest function")
		}
		maximumBatchSizeBytes := configuration.MaximumBatchSizeBytes
		if maximumBatchSizeBytes <= 0 {
			maximumBatchSizeBytes = 2 << 20
		}
		maximumMessageSizeBytes := configuration.MaximumMessageSizeBytes
		if maximumMessageSizeBytes <= 0 {
			maximumMessageSizeBytes = 16 << 20
		}
		c := client.NewClient(grpcClient, digestFunction, uuid.NewRandom, maximumBatchSizeBytes, maximumMessageSizeBytes)

		inputRootBuilder := client.NewInputRootBuilder()
		if inputRootPath := configuration.InputRootPath; inputRootPath != "" {
			inputRootDirectory, err := filesystem.NewLocalDirectory(inputRootPath)
			if err != nil {
				return util.StatusWrapf(err, "Failed to open input root %#v", inputRootPath)
			}
			err = inputRootBuilder.AddLocalDirectory("", inputRootDirectory)
			inputRootDirectory.Close()
			if err != nil {
				return util.StatusWrap(err, "Failed to add input root")
			}
		}
		inputRoot, err := inputRootBuilder.Build(digestFunction)
		if err != nil {
			return util.StatusWrap(err, "Failed to build input root")
		}

		platform := &remoteexecution.Platform{}
		for name, value := range configuration.Platform {
			platform.Properties = append(platform.Properties, &remoteexecution.Platform_Property{
				Name:  name,
				Value: value,
			})
		}
		sort.Slice(platform.Properties, func(i, j int) bool {
			return platform.Properties[i].Name < platform.Properties[j].Name
		})

		actionDigest, err := c.UploadAction(ctx, &client.Action{
			Arguments:            os.Args[2:],
			EnvironmentVariables: configuration.EnvironmentVariables,
			OutputPaths:          configuration.OutputPaths,
			WorkingDirectory:     configuration.WorkingDirectory,
			Platform:             platform,
			InputRoot:            inputRoot,
			Timeout:              configuration.Timeout.Duration,
			DoNotCache:           configuration.DoNotCache,
		})
		if err != nil {
			return util.StatusWrap(err, "Failed to upload action")
		}
		log.Printf("Executing action %s", actionDigest)

		var lastStage remoteexecution.ExecutionStage_Value
		response, err := c.Execute(ctx, actionDigest, client.ExecuteOptions{
			SkipCacheLookup: configuration.SkipCacheLookup,
			Priority:        configuration.Priority,
			OnOperation: func(operation *longrunningpb.Operation) {
				var metadata remoteexecution.ExecuteOperationMetadata
				if operation.Metadata.UnmarshalTo(&metadata) == nil && metadata.Stage != lastStage {
					lastStage = metadata.Stage
					log.Printf("Operation %s: %s", operation.Name, metadata.Stage)
				}
			},
		})
		if err != nil {
			return err
		}
		if err := status.ErrorProto(response.Status); err != nil {
			return util.StatusWrap(err, "Execution failed")
		}
		if response.CachedResult {
			log.Print("Result obtained from the Action Cache")
		}

		result := response.Result
		if err := writeOutput(ctx, c, os.Stdout, result.StdoutRaw, result.StdoutDigest); err != nil {
			return util.StatusWrap(err, "Failed to obtain standard output")
		}
		if err := writeOutput(ctx, c, os.Stderr, result.StderrRaw, result.StderrDigest); err != nil {
			return util.StatusWrap(err, "Failed to obtain standard error")
		}
		for _, outputFile := range result.OutputFiles {
			log.Printf("Output file %#v: %s-%d", outputFile.Path, outputFile.Digest.GetHash(), outputFile.Digest.GetSizeBytes())
		}
		if result.ExitCode != 0 {
			os.Exit(int(result.ExitCode))
		}
		return nil
	})
}

func writeOutput(ctx context.Context, c *client.Client, w *os.File, raw []byte, blobDigest *remoteexecution.Digest) error {
	data := raw
	if len(data) == 0 && blobDigest != nil && blobDigest.SizeBytes > 0 {
		var err error
		if data, err = c.ReadBlob(ctx, blobDigest); err != nil {
			return err
		}
	}
	_, err := w.Write(data)
	return err
}
