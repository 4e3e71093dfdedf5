package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/stake-plus/bountyboard/src/bounty"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the MySQL-backed bounty.Store.
type Store struct {
	db *gorm.DB
}

var _ bounty.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Update runs fn inside a database transaction.
func (s *Store) Update(ctx context.Context, fn func(tx bounty.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db, writable: true})
	})
}

// View runs fn inside a transaction so multi-statement reads see one
// snapshot. Nothing is written.
func (s *Store) View(ctx context.Context, fn func(tx bounty.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db       *gorm.DB
	writable bool
}

var errReadOnly = errors.New("data: write in read-only transaction")

func (t *gormTx) GetOrCreateMember(id bounty.MemberID) (*bounty.Member, error) {
	if id == "" {
		return nil, fmt.Errorf("member id is required")
	}

	var row MemberRow
	err := t.db.First(&row, "id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m := bounty.NewMember(id)
		if !t.writable {
			return m, nil
		}
		row = memberToRow(m)
		if err := t.db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("create member %s: %w", id, err)
		}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load member %s: %w", id, err)
	}

	var assignments []AssignmentRow
	if err := t.db.Where("member_id = ?", row.ID).Order("bounty_id").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("load assignments of %s: %w", id, err)
	}
	return rowToMember(row, assignments)
}

func (t *gormTx) PutMember(m *bounty.Member) error {
	if !t.writable {
		return errReadOnly
	}
	row := memberToRow(m)
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "credit_debt", "updated_at"}),
	}
	if err := t.db.Clauses(upsert).Create(&row).Error; err != nil {
		return fmt.Errorf("save member %s: %w", m.ID, err)
	}
	if err := t.db.Where("member_id = ?", row.ID).Delete(&AssignmentRow{}).Error; err != nil {
		return fmt.Errorf("clear assignments of %s: %w", m.ID, err)
	}
	for _, id := range m.AssignedBountyIDs {
		a := AssignmentRow{MemberID: row.ID, BountyID: uint64(id)}
		if err := t.db.Create(&a).Error; err != nil {
			return fmt.Errorf("save assignment %s of %s: %w", id, m.ID, err)
		}
	}
	return nil
}

func (t *gormTx) InsertBounty(b *bounty.Bounty) error {
	if !t.writable {
		return errReadOnly
	}
	row := bountyToRow(b)
	row.ID = 0
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert bounty: %w", err)
	}
	b.ID = bounty.BountyID(row.ID)
	b.CreatedAt = row.CreatedAt
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *gormTx) Bounty(id bounty.BountyID) (*bounty.Bounty, error) {
	var row BountyRow
	err := t.db.First(&row, "id = ?", uint64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, bounty.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return rowToBounty(row)
}

func (t *gormTx) PutBounty(b *bounty.Bounty) error {
	if !t.writable {
		return errReadOnly
	}
	if _, err := t.Bounty(b.ID); err != nil {
		return err
	}
	row := bountyToRow(b)
	if err := t.db.Save(&row).Error; err != nil {
		return fmt.Errorf("save %s: %w", b.ID, err)
	}
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *gormTx) Bounties(f bounty.Filter) ([]*bounty.Bounty, error) {
	q := t.db.Model(&BountyRow{}).Order("id")
	if f.Status != nil {
		q = q.Where("status = ?", f.Status.String())
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return nil, nil
		}
		ids := make([]uint64, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = uint64(id)
		}
		q = q.Where("id IN ?", ids)
	}

	var rows []BountyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list bounties: %w", err)
	}
	out := make([]*bounty.Bounty, 0, len(rows))
	for _, row := range rows {
		b, err := rowToBounty(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *gormTx) BountyByExternalRef(ref string) (*bounty.Bounty, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty external ref: %w", bounty.ErrNotFound)
	}
	var row BountyRow
	err := t.db.Where("external_ref = ?", ref).Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("external ref %s: %w", ref, bounty.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup external ref %s: %w", ref, err)
	}
	return rowToBounty(row)
}

func memberToRow(m *bounty.Member) MemberRow {
	return MemberRow{ID: string(m.ID), Role: m.Role.String(), CreditDebt: m.CreditDebt}
}

func rowToMember(row MemberRow, assignments []AssignmentRow) (*bounty.Member, error) {
	role, err := bounty.ParseRole(row.Role)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", row.ID, err)
	}
	m := &bounty.Member{ID: bounty.MemberID(row.ID), Role: role, CreditDebt: row.CreditDebt}
	for _, a := range assignments {
		m.AssignedBountyIDs = append(m.AssignedBountyIDs, bounty.BountyID(a.BountyID))
	}
	return m, nil
}

func bountyToRow(b *bounty.Bounty) BountyRow {
	return BountyRow{
		ID:          uint64(b.ID),
		CreatorID:   string(b.CreatorID),
		Type:        b.Type.String(),
		Status:      b.Status.String(),
		Title:       b.Title,
		Description: b.Description,
		AssignedTo:  nullable(string(b.AssignedTo)),
		VerifierID:  nullable(string(b.VerifierID)),
		ExternalRef: nullable(b.ExternalRef),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func rowToBounty(row BountyRow) (*bounty.Bounty, error) {
	typ, err := bounty.ParseType(row.Type)
	if err != nil {
		return nil, fmt.Errorf("bounty %d: %w", row.ID, err)
	}
	status, err := bounty.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("bounty %d: %w", row.ID, err)
	}
	return &bounty.Bounty{
		ID:          bounty.BountyID(row.ID),
		CreatorID:   bounty.MemberID(row.CreatorID),
		Type:        typ,
		Status:      status,
		Title:       row.Title,
		Description: row.Description,
		AssignedTo:  bounty.MemberID(deref(row.AssignedTo)),
		VerifierID:  bounty.MemberID(deref(row.VerifierID)),
		ExternalRef: deref(row.ExternalRef),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
