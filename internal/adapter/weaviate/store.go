package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"finrag/internal/embed"
	"finrag/internal/retrieval"
	"finrag/internal/vector"
)

type Store struct {
	client    *weaviate.Client
	className string
}

func NewStore(client *weaviate.Client, className string) *Store {
	if className == "" {
		className = vector.DefaultClassName
	}
	return &Store{client: client, className: className}
}

// ChunkKey is the logical id of the i-th chunk of a user's corpus.
func ChunkKey(userID string, i int) string {
	return fmt.Sprintf("%s_%d", userID, i)
}

// ObjectID maps a chunk key onto the UUID Weaviate requires. The mapping is
// deterministic so re-running a user overwrites the same objects.
func ObjectID(key string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String())
}

func (s *Store) userFilter(userID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueText(userID)
}

// Upsert writes one object per item in a single batch. Any per-object
// failure in the batch response is returned as an error.
func (s *Store) Upsert(ctx context.Context, userID string, items []embed.Embedded) error {
	if len(items) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(items))
	for i, it := range items {
		key := ChunkKey(userID, i)
		objects[i] = &models.Object{
			Class: s.className,
			ID:    ObjectID(key),
			Properties: map[string]interface{}{
				"userId":     userID,
				"text":       it.Text,
				"chunkKey":   key,
				"chunkIndex": i,
			},
			Vector: it.Vector,
		}
	}

	res, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}

	var failures []string
	for _, r := range res {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			failures = append(failures, fmt.Sprintf("%s: %s", r.ID, e.Message))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("batch upsert: %d object error(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

// DeleteByUser removes every chunk owned by userID. The server caps how many
// matches one batch delete handles, so the call repeats until nothing is left
// past the cap.
func (s *Store) DeleteByUser(ctx context.Context, userID string) error {
	for {
		resp, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(s.className).
			WithOutput("minimal").
			WithWhere(s.userFilter(userID)).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
		if resp == nil || resp.Results == nil {
			return nil
		}
		res := resp.Results
		if res.Failed > 0 {
			return fmt.Errorf("batch delete: %d of %d object(s) failed", res.Failed, res.Matches)
		}
		if res.Limit <= 0 || res.Matches <= res.Limit {
			return nil
		}
		if res.Successful == 0 {
			return fmt.Errorf("batch delete: %d match(es) left for user %s", res.Matches, userID)
		}
	}
}

func (s *Store) Search(ctx context.Context, userID string, vec []float32, limit int) ([]retrieval.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "userId"},
		{Name: "chunkKey"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithNearVector(nearVector).
		WithWhere(s.userFilter(userID)).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []retrieval.SearchResult
	for _, props := range s.rows(res.Data, "Get") {
		r := retrieval.SearchResult{}
		if text, ok := props["text"].(string); ok {
			r.Content = text
		}
		if uid, ok := props["userId"].(string); ok {
			r.UserID = uid
		}
		if key, ok := props["chunkKey"].(string); ok {
			r.ChunkKey = key
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			r.ChunkIndex = int(idx)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				r.Distance = float32(d)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	return s.count(ctx, nil)
}

func (s *Store) CountByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, s.userFilter(userID))
}

func (s *Store) count(ctx context.Context, where *filters.WhereBuilder) (int, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if where != nil {
		agg = agg.WithWhere(where)
	}

	res, err := agg.Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	rows := s.rows(res.Data, "Aggregate")
	if len(rows) == 0 {
		return 0, nil
	}
	if meta, ok := rows[0]["meta"].(map[string]interface{}); ok {
		if count, ok := meta["count"].(float64); ok {
			return int(count), nil
		}
	}
	return 0, nil
}

// rows unpacks data[op][className] from a GraphQL response.
func (s *Store) rows(data map[string]models.JSONObject, op string) []map[string]interface{} {
	byClass, ok := data[op].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := byClass[s.className].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if props, ok := r.(map[string]interface{}); ok {
			out = append(out, props)
		}
	}
	return out
}
