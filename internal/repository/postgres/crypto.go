package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/investigate/case-graph/internal/domain"
)

const cryptoTxColumns = `id, case_id, evidence_id, blockchain, tx_hash, block_number, from_address,
	from_label, to_address, to_label, amount, amount_usd, fee, timestamp, risk_flag, risk_score,
	is_incoming, is_contract_interaction, method_name, notes, created_at`

const walletColumns = `id, case_id, address, blockchain, label, owner_name, owner_type,
	total_received, total_sent, total_received_usd, total_sent_usd, transaction_count, risk_score,
	risk_factors, is_suspect, is_exchange, is_mixer, is_sanctioned, first_tx_date, last_tx_date, updated_at`

func (s *Store) InsertCryptoTransactions(ctx context.Context, caseID int64, txs []domain.CryptoTransaction) (int, error) {
	columns := []string{
		"case_id", "evidence_id", "blockchain", "tx_hash", "block_number", "from_address",
		"from_label", "to_address", "to_label", "amount", "amount_usd", "fee", "timestamp",
		"risk_flag", "risk_score", "is_incoming", "is_contract_interaction", "method_name", "notes",
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"crypto_transactions"}, columns,
		pgx.CopyFromSlice(len(txs), func(i int) ([]any, error) {
			t := txs[i]
			return []any{
				caseID, t.EvidenceID, string(t.Blockchain), t.TxHash, t.BlockNumber, t.FromAddress,
				t.FromLabel, t.ToAddress, t.ToLabel, t.Amount, t.AmountUSD, t.Fee, t.Timestamp,
				string(t.RiskFlag), t.RiskScore, t.IsIncoming, t.IsContract, t.MethodName, t.Notes,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy crypto transactions: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListCryptoTransactions(ctx context.Context, caseID int64) ([]domain.CryptoTransaction, error) {
	txs, err := selectAll[domain.CryptoTransaction](ctx, s.pool,
		`SELECT `+cryptoTxColumns+` FROM crypto_transactions WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto transactions: %w", err)
	}
	return txs, nil
}

// DeleteCryptoTransactions removes the case's transactions and the wallets derived from them
func (s *Store) DeleteCryptoTransactions(ctx context.Context, caseID int64) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM crypto_transactions WHERE case_id = $1`, caseID)
		if err != nil {
			return fmt.Errorf("failed to delete crypto transactions: %w", err)
		}
		n = tag.RowsAffected()
		if _, err := tx.Exec(ctx, `DELETE FROM crypto_wallets WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to delete wallets: %w", err)
		}
		return nil
	})
	return n, err
}

// ReplaceCryptoWallets swaps the case's wallets inside one transaction
func (s *Store) ReplaceCryptoWallets(ctx context.Context, caseID int64, wallets []domain.CryptoWallet) ([]domain.CryptoWallet, error) {
	const query = `
		INSERT INTO crypto_wallets (
			case_id, address, blockchain, label, owner_name, owner_type,
			total_received, total_sent, total_received_usd, total_sent_usd, transaction_count,
			risk_score, risk_factors, is_suspect, is_exchange, is_mixer, is_sanctioned,
			first_tx_date, last_tx_date
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17,
			$18, $19
		)
		RETURNING id, updated_at
	`
	out := make([]domain.CryptoWallet, len(wallets))
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM crypto_wallets WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to clear wallets: %w", err)
		}
		for i, w := range wallets {
			w.CaseID = caseID
			factors := w.RiskFactors
			if factors == nil {
				factors = []domain.RiskFactor{}
			}
			err := tx.QueryRow(ctx, query,
				caseID, w.Address, string(w.Blockchain), w.Label, w.OwnerName, w.OwnerType,
				w.TotalReceived, w.TotalSent, w.TotalReceivedUSD, w.TotalSentUSD, w.TransactionCount,
				w.RiskScore, factors, w.IsSuspect, w.IsExchange, w.IsMixer, w.IsSanctioned,
				w.FirstTxDate, w.LastTxDate,
			).Scan(&w.ID, &w.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert wallet: %w", err)
			}
			out[i] = w
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListCryptoWallets(ctx context.Context, caseID int64) ([]domain.CryptoWallet, error) {
	wallets, err := selectAll[domain.CryptoWallet](ctx, s.pool,
		`SELECT `+walletColumns+` FROM crypto_wallets WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
