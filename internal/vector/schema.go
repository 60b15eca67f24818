package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

const DefaultClassName = "TransactionChunk"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:         "userId",
			DataType:     []string{"text"},
			Tokenization: "field", // exact match for per-user filters
		},
		{
			Name:         "chunkKey",
			DataType:     []string{"text"},
			Tokenization: "field",
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
	}
}

// EnsureSchema creates className if missing and adds any properties an older
// deployment lacks. Vectors are always supplied by the caller.
func EnsureSchema(ctx context.Context, client SchemaClient, className string) error {
	if className == "" {
		className = DefaultClassName
	}
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := chunkProperties()
	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "A chunk of a user's transaction history",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
