package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

// ProofRepo persists value proofs in PostgreSQL. It backs the in-memory
// proof ledger as a write-through store and rehydrates it on startup.
//
// Schema:
//
//	CREATE TABLE value_proofs (
//	    id             UUID PRIMARY KEY,
//	    user_id        VARCHAR(64) NOT NULL,
//	    kind           VARCHAR(16) NOT NULL,
//	    score          DOUBLE PRECISION NOT NULL,
//	    reward         BIGINT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    verified       BOOLEAN NOT NULL DEFAULT FALSE,
//	    settlement_ref TEXT,
//	    metadata       JSONB
//	);
//	CREATE INDEX value_proofs_user_idx ON value_proofs (user_id, created_at DESC);
type ProofRepo struct {
	pool *pgxpool.Pool
}

func NewProofRepo(pool *pgxpool.Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

// SaveProof inserts a newly created proof. Replays of the same id are ignored.
func (r *ProofRepo) SaveProof(ctx context.Context, p *model.ValueProof) error {
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode proof metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO value_proofs (id, user_id, kind, score, reward, created_at, verified, settlement_ref, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.UserID, string(p.Kind), p.Score, p.Reward, p.CreatedAt, p.Verified, nullable(p.SettlementRef), meta)
	return err
}

// MarkSettled flips a proof to verified with its settlement reference.
func (r *ProofRepo) MarkSettled(ctx context.Context, proofID, settlementRef string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE value_proofs
		SET verified = TRUE, settlement_ref = $2
		WHERE id = $1 AND verified = FALSE`,
		proofID, settlementRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proof %s: no unverified row to settle", proofID)
	}
	return nil
}

// LoadProofs returns all persisted proofs in creation order.
func (r *ProofRepo) LoadProofs(ctx context.Context) ([]*model.ValueProof, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, score, reward, created_at, verified, settlement_ref, metadata
		FROM value_proofs
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []*model.ValueProof
	for rows.Next() {
		var (
			p          model.ValueProof
			kind       string
			settlement *string
			meta       []byte
		)
		if err := rows.Scan(&p.ID, &p.UserID, &kind, &p.Score, &p.Reward, &p.CreatedAt, &p.Verified, &settlement, &meta); err != nil {
			return nil, err
		}
		p.Kind = model.ContributionKind(kind)
		if settlement != nil {
			p.SettlementRef = *settlement
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &p.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for proof %s: %w", p.ID, err)
			}
		}
		proofs = append(proofs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return proofs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
