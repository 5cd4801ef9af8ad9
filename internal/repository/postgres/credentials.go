package postgres

import (
	"context"
	"fmt"

	"github.com/investigate/case-graph/internal/domain"
)

const credentialColumns = `provider, ciphertext, key_version, hint, updated_by, updated_at`

func (s *Store) GetCredential(ctx context.Context, provider domain.ProviderName) (*domain.ProviderCredential, error) {
	return selectOne[domain.ProviderCredential](ctx, s.pool, "credential", provider,
		`SELECT `+credentialColumns+` FROM provider_credentials WHERE provider = $1`, string(provider))
}

func (s *Store) UpsertCredential(ctx context.Context, c *domain.ProviderCredential) error {
	const query = `
		INSERT INTO provider_credentials (provider, ciphertext, key_version, hint, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (provider) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			key_version = EXCLUDED.key_version,
			hint = EXCLUDED.hint,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		string(c.Provider), c.Ciphertext, c.KeyVersion, c.Hint, c.UpdatedBy,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

func (s *Store) DeleteCredential(ctx context.Context, provider domain.ProviderName) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM provider_credentials WHERE provider = $1`, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return expectOne(tag, "credential", provider)
}

func (s *Store) ListCredentials(ctx context.Context) ([]domain.ProviderCredential, error) {
	creds, err := selectAll[domain.ProviderCredential](ctx, s.pool,
		`SELECT `+credentialColumns+` FROM provider_credentials ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}
