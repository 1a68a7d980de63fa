package milvus

import (
	"context"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

const (
	fieldID          = "id"
	fieldPatentID    = "patent_id"
	fieldClaimNumber = "claim_number"
	fieldEmbedding   = "embedding"

	// Primary keys are UUID strings; claim keys append ":<claim_number>".
	uuidMaxLength    = 36
	claimPKMaxLength = 48

	defaultShards = int32(2)
)

// patentSchema describes the per-patent embedding collection. One row per
// patent, keyed by the patent's UUID, holding the document-level embedding.
func patentSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Document-level patent embeddings",
		Fields: []*entity.Field{
			{Name: fieldID, DataType: entity.FieldTypeVarChar, PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(uuidMaxLength)}},
			{Name: fieldEmbedding, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)}},
		},
	}
}

// claimSchema describes the per-claim embedding collection. One row per
// claim, keyed by "<patent-uuid>:<claim-number>", carrying the owning patent
// and claim number as scalar fields so search hits resolve without a second
// lookup.
func claimSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Claim-level patent embeddings",
		Fields: []*entity.Field{
			{Name: fieldID, DataType: entity.FieldTypeVarChar, PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(claimPKMaxLength)}},
			{Name: fieldPatentID, DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(uuidMaxLength)}},
			{Name: fieldClaimNumber, DataType: entity.FieldTypeInt64},
			{Name: fieldEmbedding, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)}},
		},
	}
}

// EnsureCollections creates the patent and claim collections if they are
// missing, builds the vector index on each, and loads them into memory.
// It is idempotent and safe to run at every startup.
func (ix *Index) EnsureCollections(ctx context.Context) error {
	schemas := []*entity.Schema{
		patentSchema(ix.patentCollection(), ix.cfg.EmbeddingDim),
		claimSchema(ix.claimCollection(), ix.cfg.EmbeddingDim),
	}
	for _, schema := range schemas {
		if err := ix.ensureCollection(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) ensureCollection(ctx context.Context, schema *entity.Schema) error {
	api := ix.client.api()

	has, err := api.HasCollection(ctx, schema.CollectionName)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "checking collection "+schema.CollectionName)
	}
	if !has {
		if err := api.CreateCollection(ctx, schema, defaultShards); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "creating collection "+schema.CollectionName)
		}
		ix.logger.Info("collection created", logging.String("name", schema.CollectionName))
	}

	idx, err := ix.vectorIndex()
	if err != nil {
		return err
	}
	// CreateIndex fails when an index already exists on the field; that is
	// the steady state after first boot, so log and move on.
	if err := api.CreateIndex(ctx, schema.CollectionName, fieldEmbedding, idx, false); err != nil {
		ix.logger.Debug("index creation skipped",
			logging.String("collection", schema.CollectionName), logging.Err(err))
	}

	if err := api.LoadCollection(ctx, schema.CollectionName, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorIndexUnavailable, "loading collection "+schema.CollectionName)
	}
	return nil
}

func (ix *Index) vectorIndex() (entity.Index, error) {
	switch ix.cfg.IndexType {
	case "IVF_FLAT":
		idx, err := entity.NewIndexIvfFlat(entity.COSINE, defaultNList)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "building IVF_FLAT index")
		}
		return idx, nil
	default: // HNSW
		idx, err := entity.NewIndexHNSW(entity.COSINE, ix.cfg.HNSWM, ix.cfg.HNSWEfConstruction)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "building HNSW index")
		}
		return idx, nil
	}
}
