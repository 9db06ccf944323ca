package grpc

import (
	"encoding/json"
	"sync"

	"google.golang.org/grpc"
)

type deduplicatingClientFactory struct {
	base ClientFactory

	lock    sync.Mutex
	clients map[string]grpc.ClientConnInterface
}

// NewDeduplicatingClientFactory creates a decorator for ClientFactory
// that deduplicates requests for creating gRPC clients. This means that
// clients for identical endpoints having identical settings will not
// cause multiple connections to be established.
func NewDeduplicatingClientFactory(base ClientFactory) ClientFactory {
	return &deduplicatingClientFactory{
		base:    base,
		clients: map[string]grpc.ClientConnInterface{},
	}
}

func (cf *deduplicatingClientFactory) NewClientFromConfiguration(configuration *ClientConfiguration) (grpc.ClientConnInterface, error) {
	if configuration == nil {
		return cf.base.NewClientFromConfiguration(nil)
	}
	keyJSON, err := json.Marshal(configuration)
	if err != nil {
		return nil, err
	}
	key := string(keyJSON)

	cf.lock.Lock()
	defer cf.lock.Unlock()

	// Attempt to return an existing client.
	if client, ok := cf.clients[key]; ok {
		return client, nil
	}

	// Create a new client, as it has a different configuration.
	client, err := cf.base.NewClientFromConfiguration(configuration)
	if err != nil {
		return nil, err
	}
	cf.clients[key] = client
	return client, nil
}
