// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package gcs provides the 'storage_bucket' resource type backed by Google
// Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/registry"
)

// ResourceType is the type name this module registers.
const ResourceType = "storage_bucket"

// Module implements the registry.Module interface for this package. The
// storage client is created on first use, so registering the module needs no
// credentials.
type Module struct {
	// CredentialsFile is a service account key. Empty means application
	// default credentials.
	CredentialsFile string
	// Endpoint overrides the API endpoint, e.g. for a local emulator. Requests
	// to a custom endpoint are sent unauthenticated.
	Endpoint string

	once   sync.Once
	client *storage.Client
	err    error
}

// Input defines the arguments of a storage_bucket resource.
type Input struct {
	Name          string            `cty:"name" validate:"required,min=3,max=63"`
	Project       string            `cty:"project" validate:"required"`
	Location      string            `cty:"location"`
	StorageClass  string            `cty:"storage_class" validate:"omitempty,oneof=STANDARD NEARLINE COLDLINE ARCHIVE"`
	Labels        map[string]string `cty:"labels"`
	UniformAccess bool              `cty:"uniform_access"`
	Versioning    bool              `cty:"versioning"`
}

// Register registers the storage_bucket resource with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, ResourceType, registry.Resource[Input]{
		Create: m.create,
		Delete: m.delete,
	})
}

// Close releases the storage client if one was created.
func (m *Module) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *Module) storageClient(ctx context.Context) (*storage.Client, error) {
	m.once.Do(func() {
		var opts []option.ClientOption
		if m.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(m.CredentialsFile))
		}
		if m.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(m.Endpoint), option.WithoutAuthentication())
		}
		// The client outlives the create call that triggers it.
		m.client, m.err = storage.NewClient(context.WithoutCancel(ctx), opts...)
		if m.err != nil {
			m.err = fmt.Errorf("failed to create GCS storage client: %w", m.err)
		}
	})
	return m.client, m.err
}

func (m *Module) create(ctx context.Context, input *Input) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", input.Name, "project", input.Project)

	client, err := m.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	attrs := bucketAttrs(input)
	logger.Debug("GCS: Creating bucket.", "location", attrs.Location, "class", attrs.StorageClass)
	if err := client.Bucket(input.Name).Create(ctx, input.Project, attrs); err != nil {
		return nil, classify(fmt.Errorf("failed to create bucket %s: %w", input.Name, err))
	}
	logger.Debug("GCS: Bucket created.")
	return bucketOutputs(input.Name, attrs), nil
}

func (m *Module) delete(ctx context.Context, id string) error {
	client, err := m.storageClient(ctx)
	if err != nil {
		return err
	}
	err = client.Bucket(id).Delete(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		ctxlog.FromContext(ctx).Debug("GCS: Bucket already gone.", "bucket", id)
		return nil
	}
	if err != nil {
		return classify(fmt.Errorf("failed to delete bucket %s: %w", id, err))
	}
	return nil
}

func bucketAttrs(input *Input) *storage.BucketAttrs {
	attrs := &storage.BucketAttrs{
		Location:          input.Location,
		StorageClass:      input.StorageClass,
		Labels:            input.Labels,
		VersioningEnabled: input.Versioning,
	}
	if attrs.Location == "" {
		attrs.Location = "US"
	}
	if attrs.StorageClass == "" {
		attrs.StorageClass = "STANDARD"
	}
	attrs.UniformBucketLevelAccess.Enabled = input.UniformAccess
	return attrs
}

func bucketOutputs(name string, attrs *storage.BucketAttrs) map[string]any {
	return map[string]any{
		"id":            name,
		"name":          name,
		"url":           "gs://" + name,
		"self_link":     "https://storage.googleapis.com/" + name,
		"location":      attrs.Location,
		"storage_class": attrs.StorageClass,
	}
}

// classify marks rate limiting and server side API errors as transient.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return backend.Transient(err)
		}
	}
	return err
}
