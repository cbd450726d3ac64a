package service

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"questmart/internal/model"
)

// QuestCatalog is the read-only registry of quest definitions. It is safe for
// concurrent use because nothing mutates it after construction.
type QuestCatalog struct {
	quests []model.Quest
	byID   map[string]int
}

func NewQuestCatalog(quests []model.Quest) (*QuestCatalog, error) {
	c := &QuestCatalog{
		quests: make([]model.Quest, 0, len(quests)),
		byID:   make(map[string]int, len(quests)),
	}
	for _, q := range quests {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuest, err)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quest id %s", ErrInvalidQuest, q.ID)
		}
		c.byID[q.ID] = len(c.quests)
		c.quests = append(c.quests, q)
	}
	return c, nil
}

func (c *QuestCatalog) Get(questID string) (model.Quest, error) {
	i, ok := c.byID[questID]
	if !ok {
		return model.Quest{}, ErrQuestNotFound
	}
	return c.quests[i], nil
}

func (c *QuestCatalog) Len() int {
	return len(c.quests)
}

// List returns quests matching filter in catalog order, or in the requested
// sort order with catalog order breaking ties.
func (c *QuestCatalog) List(filter model.QuestFilter, sort model.QuestSort) []model.Quest {
	out := make([]model.Quest, 0, len(c.quests))
	for i := range c.quests {
		if filter.Match(&c.quests[i]) {
			out = append(out, c.quests[i])
		}
	}

	if sort.Field == model.QuestSortNone {
		return out
	}

	slices.SortStableFunc(out, func(a, b model.Quest) int {
		var r int
		switch sort.Field {
		case model.QuestSortReward:
			r = cmp.Compare(a.Reward, b.Reward)
		case model.QuestSortDifficulty:
			r = cmp.Compare(a.Difficulty.Weight(), b.Difficulty.Weight())
		case model.QuestSortTitle:
			r = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
		if sort.Direction == model.Desc {
			r = -r
		}
		return r
	})
	return out
}

// Featured returns the first n quests in catalog order.
func (c *QuestCatalog) Featured(n int) []model.Quest {
	n = min(max(n, 0), len(c.quests))
	return slices.Clone(c.quests[:n])
}
