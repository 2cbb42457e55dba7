package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/rules"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// CreateRule validates the parameters and attaches an active rule to the
// collection. Invalid parameters are rejected before anything is persisted.
func (s *Store) CreateRule(ctx context.Context, collectionID string, params models.RuleParams, priority int) (*models.Rule, error) {
	if err := rules.Validate(params); err != nil {
		return nil, err
	}
	typ, raw, err := models.WrapParams(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRuleValidation, err)
	}

	now := s.now()
	rule := &models.Rule{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		Type:         typ,
		Params:       raw,
		Priority:     priority,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		parent, err := s.visibleCollection(ctx, tx, collectionID)
		if err != nil {
			return err
		}
		rule.SyncStatus = initialStatus(parent.OwnerID)

		if err := rulesRepo(tx).Insert(ctx, rule); err != nil {
			return err
		}
		if rule.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindRule, rule.ID, parent.OwnerID, models.OpCreate, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule replaces a rule's parameters, priority and active flag. The
// new parameters are validated like on create.
func (s *Store) UpdateRule(ctx context.Context, id string, params models.RuleParams, priority int, active bool) error {
	if err := rules.Validate(params); err != nil {
		return err
	}
	typ, raw, err := models.WrapParams(params)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRuleValidation, err)
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := rulesRepo(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		parent, err := s.visibleCollection(ctx, tx, cur.CollectionID)
		if err != nil {
			return err
		}

		cur.Type = typ
		cur.Params = raw
		cur.Priority = priority
		cur.Active = active
		cur.SyncStatus = bumpStatus(cur.SyncStatus)
		cur.UpdatedAt = s.now()

		if err := rulesRepo(tx).Update(ctx, cur); err != nil {
			return err
		}
		if cur.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindRule, cur.ID, parent.OwnerID, queueOp(cur.SyncStatus), cur)
	})
}

// DeleteRule removes the rule. Items it added earlier stay in the
// collection; rules only ever add.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := rulesRepo(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		parent, err := s.visibleCollection(ctx, tx, cur.CollectionID)
		if err != nil {
			return err
		}

		if err := rulesRepo(tx).Delete(ctx, id); err != nil {
			return err
		}
		if cur.SyncStatus == models.SyncPendingCreate || cur.SyncStatus == models.SyncPendingOwner {
			return queueRepo(tx).Remove(ctx, models.KindRule, id)
		}
		return s.enqueue(ctx, tx, models.KindRule, id, parent.OwnerID, models.OpDelete, cur)
	})
}

// Rules lists a collection's rules, highest priority first.
func (s *Store) Rules(ctx context.Context, collectionID string) ([]models.Rule, error) {
	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	list, err := rulesRepo(s.db).ListByCollection(ctx, collectionID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return list, nil
}

// ActiveRules feeds the rule engine.
func (s *Store) ActiveRules(ctx context.Context, collectionID string) ([]models.Rule, error) {
	list, err := rulesRepo(s.db).ListByCollection(ctx, collectionID, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return list, nil
}

// ItemSpeciesIDs feeds the rule engine the collection's current membership.
func (s *Store) ItemSpeciesIDs(ctx context.Context, collectionID string) (map[string]struct{}, error) {
	set, err := itemsRepo(s.db).SpeciesIDs(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return set, nil
}

// AddRuleItems batch-inserts pending items for rule-matched species. Species
// already tracked are skipped, so a concurrent manual add does not fail the
// batch. Each inserted item is queued like a manual create.
func (s *Store) AddRuleItems(ctx context.Context, collectionID string, speciesIDs []string) (int, error) {
	added := 0
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		parent, err := s.visibleCollection(ctx, tx, collectionID)
		if err != nil {
			return err
		}

		repo := itemsRepo(tx)
		existing, err := repo.SpeciesIDs(ctx, collectionID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, speciesID := range speciesIDs {
			if _, ok := existing[speciesID]; ok {
				continue
			}
			item := &models.Item{
				ID:           uuid.NewString(),
				CollectionID: collectionID,
				SpeciesID:    speciesID,
				Status:       models.ItemPending,
				SyncStatus:   initialStatus(parent.OwnerID),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := repo.Insert(ctx, item); err != nil {
				return err
			}
			if item.SyncStatus != models.SyncPendingOwner {
				if err := s.enqueue(ctx, tx, models.KindItem, item.ID, parent.OwnerID, models.OpCreate, item); err != nil {
					return err
				}
			}
			added++
		}
		if added == 0 {
			return nil
		}
		return s.refreshAggregates(ctx, tx, collectionID)
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
