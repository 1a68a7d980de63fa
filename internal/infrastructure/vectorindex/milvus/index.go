package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const (
	defaultNList    = 1024
	defaultNProbe   = 16
	minSearchEf     = 64
	defaultTopK     = 20
	defaultDim      = 768
	defaultPrefix   = "claimscope_"
	defaultHNSWM    = 16
	defaultHNSWEfCx = 200
)

// Index exposes the patent and claim embedding collections. It satisfies
// the retrieval engine's vector-search contract and additionally offers the
// write side used by the ingestion path.
type Index struct {
	client *Client
	cfg    config.MilvusConfig
	logger logging.Logger
}

var _ engine.VectorIndex = (*Index)(nil)

// NewIndex wires an Index over an established client connection.
func NewIndex(c *Client, cfg config.MilvusConfig, log logging.Logger) *Index {
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = defaultDim
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = defaultTopK
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = defaultPrefix
	}
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = defaultHNSWM
	}
	if cfg.HNSWEfConstruction <= 0 {
		cfg.HNSWEfConstruction = defaultHNSWEfCx
	}
	return &Index{client: c, cfg: cfg, logger: log.Named("vectorindex")}
}

func (ix *Index) patentCollection() string { return ix.cfg.CollectionPrefix + "patents" }
func (ix *Index) claimCollection() string  { return ix.cfg.CollectionPrefix + "claims" }

// SearchPatents returns the nearest patent embeddings to the query vector,
// scored in [0, 1].
func (ix *Index) SearchPatents(ctx context.Context, vector []float32, topK int) ([]engine.PatentHit, error) {
	res, err := ix.search(ctx, ix.patentCollection(), vector, topK, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]engine.PatentHit, 0, res.ResultCount)
	for j := 0; j < res.ResultCount; j++ {
		raw, err := res.IDs.GetAsString(j)
		if err != nil {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			ix.logger.Warn("skipping malformed patent key", logging.String("key", raw))
			continue
		}
		hits = append(hits, engine.PatentHit{
			PatentID: id,
			Score:    normalizeScore(res.Scores[j]),
		})
	}
	return hits, nil
}

// SearchClaims returns the nearest claim embeddings to the query vector,
// resolved to (patent, claim number) pairs and scored in [0, 1].
func (ix *Index) SearchClaims(ctx context.Context, vector []float32, topK int) ([]engine.ClaimHit, error) {
	res, err := ix.search(ctx, ix.claimCollection(), vector, topK,
		[]string{fieldPatentID, fieldClaimNumber})
	if err != nil {
		return nil, err
	}

	patentCol := res.Fields.GetColumn(fieldPatentID)
	numberCol := res.Fields.GetColumn(fieldClaimNumber)
	if patentCol == nil || numberCol == nil {
		return nil, errors.New(errors.ErrCodeVectorIndexUnavailable, "claim search result missing output fields")
	}

	hits := make([]engine.ClaimHit, 0, res.ResultCount)
	for j := 0; j < res.ResultCount; j++ {
		raw, err := patentCol.GetAsString(j)
		if err != nil {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			ix.logger.Warn("skipping malformed claim owner key", logging.String("key", raw))
			continue
		}
		number, err := numberCol.GetAsInt64(j)
		if err != nil {
			continue
		}
		hits = append(hits, engine.ClaimHit{
			PatentID:    id,
			ClaimNumber: int(number),
			Score:       normalizeScore(res.Scores[j]),
		})
	}
	return hits, nil
}

func (ix *Index) search(ctx context.Context, collection string, vector []float32, topK int, outputFields []string) (*client.SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "query vector is empty")
	}
	if len(vector) != ix.cfg.EmbeddingDim {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"query vector has dimension %d, index expects %d", len(vector), ix.cfg.EmbeddingDim)
	}
	if topK <= 0 {
		topK = ix.cfg.DefaultTopK
	}

	sp, err := ix.searchParam(topK)
	if err != nil {
		return nil, err
	}

	results, err := ix.client.api().Search(ctx, collection, nil, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.COSINE, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClBounded))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "searching "+collection)
	}
	if len(results) == 0 {
		return &client.SearchResult{}, nil
	}
	return &results[0], nil
}

func (ix *Index) searchParam(topK int) (entity.SearchParam, error) {
	switch ix.cfg.IndexType {
	case "IVF_FLAT":
		sp, err := entity.NewIndexIvfFlatSearchParam(defaultNProbe)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "building IVF_FLAT search params")
		}
		return sp, nil
	default:
		sp, err := entity.NewIndexHNSWSearchParam(searchEf(topK))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "building HNSW search params")
		}
		return sp, nil
	}
}

// UpsertPatent writes the document-level embedding for a patent.
func (ix *Index) UpsertPatent(ctx context.Context, patentID uuid.UUID, vector []float32) error {
	if len(vector) != ix.cfg.EmbeddingDim {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"patent embedding has dimension %d, index expects %d", len(vector), ix.cfg.EmbeddingDim)
	}

	_, err := ix.client.api().Upsert(ctx, ix.patentCollection(), "",
		entity.NewColumnVarChar(fieldID, []string{patentID.String()}),
		entity.NewColumnFloatVector(fieldEmbedding, ix.cfg.EmbeddingDim, [][]float32{vector}))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "upserting patent embedding")
	}
	return nil
}

// UpsertClaims replaces the claim embeddings of a patent. Claim numbers and
// vectors are parallel slices; stale rows from a previous claim set are
// removed first so re-parses that drop claims do not leave orphans behind.
func (ix *Index) UpsertClaims(ctx context.Context, patentID uuid.UUID, numbers []int, vectors [][]float32) error {
	if len(numbers) != len(vectors) {
		return errors.Newf(errors.CodeInvalidParam,
			"claim numbers and vectors differ in length: %d vs %d", len(numbers), len(vectors))
	}
	if err := ix.deleteClaims(ctx, patentID); err != nil {
		return err
	}
	if len(numbers) == 0 {
		return nil
	}

	keys := make([]string, len(numbers))
	owners := make([]string, len(numbers))
	claimNumbers := make([]int64, len(numbers))
	for i, n := range numbers {
		if len(vectors[i]) != ix.cfg.EmbeddingDim {
			return errors.Newf(errors.ErrCodeDimensionMismatch,
				"claim %d embedding has dimension %d, index expects %d", n, len(vectors[i]), ix.cfg.EmbeddingDim)
		}
		keys[i] = claimKey(patentID, n)
		owners[i] = patentID.String()
		claimNumbers[i] = int64(n)
	}

	_, err := ix.client.api().Upsert(ctx, ix.claimCollection(), "",
		entity.NewColumnVarChar(fieldID, keys),
		entity.NewColumnVarChar(fieldPatentID, owners),
		entity.NewColumnInt64(fieldClaimNumber, claimNumbers),
		entity.NewColumnFloatVector(fieldEmbedding, ix.cfg.EmbeddingDim, vectors))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "upserting claim embeddings")
	}
	return nil
}

// DeletePatent removes a patent's document embedding and all of its claim
// embeddings.
func (ix *Index) DeletePatent(ctx context.Context, patentID uuid.UUID) error {
	expr := fmt.Sprintf("%s == %q", fieldID, patentID.String())
	if err := ix.client.api().Delete(ctx, ix.patentCollection(), "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "deleting patent embedding")
	}
	return ix.deleteClaims(ctx, patentID)
}

func (ix *Index) deleteClaims(ctx context.Context, patentID uuid.UUID) error {
	expr := fmt.Sprintf("%s == %q", fieldPatentID, patentID.String())
	if err := ix.client.api().Delete(ctx, ix.claimCollection(), "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "deleting claim embeddings")
	}
	return nil
}

// claimKey builds the claim collection primary key.
func claimKey(patentID uuid.UUID, number int) string {
	return patentID.String() + ":" + strconv.Itoa(number)
}

// normalizeScore maps a Milvus cosine similarity from [-1, 1] into [0, 1].
func normalizeScore(s float32) float64 {
	v := (float64(s) + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// searchEf keeps the HNSW search beam at least as wide as the result set.
func searchEf(topK int) int {
	if topK > minSearchEf {
		return topK
	}
	return minSearchEf
}
