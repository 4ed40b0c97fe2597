// Package registry maps client identifiers to their descriptors.
package registry

import (
	"fmt"
	"sort"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// Registry is a read-only lookup of client descriptors, built once at startup
type Registry struct {
	clients map[string]model.ClientDescriptor
	order   []string
}

// New builds a registry. Client IDs must be unique, non-empty and have a valid
// source kind and at least one data type.
func New(clients ...model.ClientDescriptor) (*Registry, error) {
	r := &Registry{clients: make(map[string]model.ClientDescriptor, len(clients))}

	for _, c := range clients {
		if c.ID == "" {
			return nil, fmt.Errorf("client ID cannot be empty")
		}
		if _, exists := r.clients[c.ID]; exists {
			return nil, fmt.Errorf("duplicate client ID: %s", c.ID)
		}
		if !c.Source.Valid() {
			return nil, fmt.Errorf("client %s: unsupported source type %q", c.ID, c.Source)
		}
		if len(c.DataTypes) == 0 {
			return nil, fmt.Errorf("client %s: no data types configured", c.ID)
		}
		if c.Company == "" {
			return nil, fmt.Errorf("client %s: warehouse company name is required", c.ID)
		}

		c.DataTypes = append([]string(nil), c.DataTypes...)
		r.clients[c.ID] = c
		r.order = append(r.order, c.ID)
	}

	sort.Strings(r.order)
	return r, nil
}

// Lookup returns the descriptor of a client
func (r *Registry) Lookup(clientID string) (model.ClientDescriptor, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return model.ClientDescriptor{}, model.Errorf(model.KindConfiguration, "get_client_descriptor",
			"unsupported client: %s. Supported clients: %v", clientID, r.order)
	}
	return c, nil
}

// Validate checks that dataType is supported for the client and returns its descriptor
func (r *Registry) Validate(clientID, dataType string) (model.ClientDescriptor, error) {
	c, err := r.Lookup(clientID)
	if err != nil {
		return model.ClientDescriptor{}, err
	}
	if !c.SupportsDataType(dataType) {
		return model.ClientDescriptor{}, model.Errorf(model.KindConfiguration, "validate_client_data_type",
			"unsupported data_type '%s' for client '%s'. Supported data_types: %v", dataType, clientID, c.DataTypes)
	}
	return c, nil
}

// Company returns the warehouse company name of a client
func (r *Registry) Company(clientID string) (string, error) {
	c, err := r.Lookup(clientID)
	if err != nil {
		return "", err
	}
	return c.Company, nil
}

// Clients returns all descriptors ordered by ID
func (r *Registry) Clients() []model.ClientDescriptor {
	out := make([]model.ClientDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.clients[id])
	}
	return out
}

// Companies returns the distinct warehouse company names of every client, ordered
// by client ID
func (r *Registry) Companies() []string {
	seen := make(map[string]bool, len(r.order))
	companies := make([]string, 0, len(r.order))
	for _, id := range r.order {
		company := r.clients[id].Company
		if !seen[company] {
			seen[company] = true
			companies = append(companies, company)
		}
	}
	return companies
}
