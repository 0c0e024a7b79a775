package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

type transferRow struct {
	ID          int64 `db:"id"`
	CommunityID int64 `db:"community_id"`
	SenderID    int64 `db:"sender_id"`
	ReceiverID  int64 `db:"receiver_id"`
	Amount      int64 `db:"amount"`
	CreatedAt   int64 `db:"created_at"`
}

type treasuryRow struct {
	ID          int64         `db:"id"`
	CommunityID int64         `db:"community_id"`
	InitiatorID int64         `db:"initiator_id"`
	Action      string        `db:"action"`
	Amount      int64         `db:"amount"`
	RecipientID sql.NullInt64 `db:"recipient_id"`
	CreatedAt   int64         `db:"created_at"`
}

type lootSplitRow struct {
	ID             int64  `db:"id"`
	CommunityID    int64  `db:"community_id"`
	InitiatorID    int64  `db:"initiator_id"`
	Name           string `db:"name"`
	Total          int64  `db:"total"`
	FlatFee        int64  `db:"flat_fee"`
	TaxPercent     int64  `db:"tax_percent"`
	TaxAmount      int64  `db:"tax_amount"`
	Remaining      int64  `db:"remaining"`
	Share          int64  `db:"share"`
	RecipientCount int64  `db:"recipient_count"`
	RecipientIDs   string `db:"recipient_ids"`
	CreatedAt      int64  `db:"created_at"`
}

type recipientRow struct {
	LootSplitID int64 `db:"lootsplit_id"`
	UserID      int64 `db:"user_id"`
}

type adjustmentRow struct {
	ID          int64  `db:"id"`
	CommunityID int64  `db:"community_id"`
	InitiatorID int64  `db:"initiator_id"`
	UserID      int64  `db:"user_id"`
	Action      string `db:"action"`
	Amount      int64  `db:"amount"`
	CreatedAt   int64  `db:"created_at"`
}

// TransferHistory lists transfers newest first.
func (s *Store) TransferHistory(ctx context.Context, communityID int64, page storage.Page) ([]models.TransferRecord, error) {
	query, args := paged(`
		SELECT id, community_id, sender_id, receiver_id, amount, created_at
		FROM transfer_logs
		WHERE community_id = ?
		ORDER BY id DESC`, page, communityID)

	var rows []transferRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("transfer history", fmt.Errorf("failed to list transfers: %w", err))
	}

	records := make([]models.TransferRecord, len(rows))
	for i, r := range rows {
		records[i] = models.TransferRecord{
			ID:          r.ID,
			CommunityID: r.CommunityID,
			SenderID:    r.SenderID,
			ReceiverID:  r.ReceiverID,
			Amount:      r.Amount,
			CreatedAt:   r.CreatedAt,
		}
	}
	return records, nil
}

// TreasuryHistory lists treasury actions newest first.
func (s *Store) TreasuryHistory(ctx context.Context, communityID int64, page storage.Page) ([]models.TreasuryActionRecord, error) {
	query, args := paged(`
		SELECT id, community_id, initiator_id, action, amount, recipient_id, created_at
		FROM treasury_logs
		WHERE community_id = ?
		ORDER BY id DESC`, page, communityID)

	var rows []treasuryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("treasury history", fmt.Errorf("failed to list treasury actions: %w", err))
	}

	records := make([]models.TreasuryActionRecord, len(rows))
	for i, r := range rows {
		records[i] = models.TreasuryActionRecord{
			ID:          r.ID,
			CommunityID: r.CommunityID,
			InitiatorID: r.InitiatorID,
			Action:      models.TreasuryAction(r.Action),
			Amount:      r.Amount,
			CreatedAt:   r.CreatedAt,
		}
		if r.RecipientID.Valid {
			id := r.RecipientID.Int64
			records[i].RecipientID = &id
		}
	}
	return records, nil
}

// LootSplitHistory lists loot splits newest first. Recipients come from the
// membership rows; splits without any fall back to the stored id list.
func (s *Store) LootSplitHistory(ctx context.Context, communityID int64, page storage.Page) ([]models.LootSplitRecord, error) {
	query, args := paged(`
		SELECT id, community_id, initiator_id, name, total, flat_fee, tax_percent,
			tax_amount, remaining, share, recipient_count, recipient_ids, created_at
		FROM lootsplit_logs
		WHERE community_id = ?
		ORDER BY id DESC`, page, communityID)

	var rows []lootSplitRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("loot split history", fmt.Errorf("failed to list loot splits: %w", err))
	}
	if len(rows) == 0 {
		return []models.LootSplitRecord{}, nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	members, err := s.recipients(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]models.LootSplitRecord, len(rows))
	for i, r := range rows {
		recipients, ok := members[r.ID]
		if !ok {
			recipients = models.ParseIDs(r.RecipientIDs)
		}
		records[i] = models.LootSplitRecord{
			ID:             r.ID,
			CommunityID:    r.CommunityID,
			InitiatorID:    r.InitiatorID,
			Name:           r.Name,
			Total:          r.Total,
			FlatFee:        r.FlatFee,
			TaxPercent:     r.TaxPercent,
			TaxAmount:      r.TaxAmount,
			Remaining:      r.Remaining,
			Share:          r.Share,
			RecipientCount: r.RecipientCount,
			RecipientIDs:   recipients,
			CreatedAt:      r.CreatedAt,
		}
	}
	return records, nil
}

// recipients loads membership rows for the given splits, keyed by split id
// and kept in payout order.
func (s *Store) recipients(ctx context.Context, splitIDs []int64) (map[int64][]int64, error) {
	query, args, err := sqlx.In(`
		SELECT lootsplit_id, user_id
		FROM lootsplit_recipients
		WHERE lootsplit_id IN (?)
		ORDER BY lootsplit_id, position`, splitIDs)
	if err != nil {
		return nil, storage.Fault("loot split history", fmt.Errorf("failed to build recipient query: %w", err))
	}

	var rows []recipientRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("loot split history", fmt.Errorf("failed to list loot split recipients: %w", err))
	}

	members := make(map[int64][]int64)
	for _, r := range rows {
		members[r.LootSplitID] = append(members[r.LootSplitID], r.UserID)
	}
	return members, nil
}

// AdjustmentHistory lists administrative grants and removals newest first.
func (s *Store) AdjustmentHistory(ctx context.Context, communityID int64, page storage.Page) ([]models.AdjustmentRecord, error) {
	query, args := paged(`
		SELECT id, community_id, initiator_id, user_id, action, amount, created_at
		FROM adjustment_logs
		WHERE community_id = ?
		ORDER BY id DESC`, page, communityID)

	var rows []adjustmentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("adjustment history", fmt.Errorf("failed to list adjustments: %w", err))
	}

	records := make([]models.AdjustmentRecord, len(rows))
	for i, r := range rows {
		records[i] = models.AdjustmentRecord{
			ID:          r.ID,
			CommunityID: r.CommunityID,
			InitiatorID: r.InitiatorID,
			UserID:      r.UserID,
			Action:      models.AdjustmentAction(r.Action),
			Amount:      r.Amount,
			CreatedAt:   r.CreatedAt,
		}
	}
	return records, nil
}
