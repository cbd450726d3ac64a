package service

import (
	"context"

	"questmart/internal/model"
)

// Projector builds the read-side views the presentation layer renders. They
// are recomputed on every call and never cached.
type Projector struct {
	catalog *QuestCatalog
	ledger  *UserLedger
	tracker *ProgressTracker
}

func NewProjector(catalog *QuestCatalog, ledger *UserLedger, tracker *ProgressTracker) *Projector {
	return &Projector{
		catalog: catalog,
		ledger:  ledger,
		tracker: tracker,
	}
}

// CompletedQuests returns the catalog quests in the user's completed set, in
// catalog order.
func (p *Projector) CompletedQuests(ctx context.Context, userID string) ([]model.Quest, error) {
	user, err := p.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.completed(user), nil
}

func (p *Projector) completed(user *model.User) []model.Quest {
	out := make([]model.Quest, 0, user.CompletedCount())
	for _, q := range p.catalog.List(model.QuestFilter{}, model.QuestSort{}) {
		if user.HasCompleted(q.ID) {
			out = append(out, q)
		}
	}
	return out
}

// UserQuests overlays the user's progress on a catalog listing. Pairs with no
// record are reported as NotStarted.
func (p *Projector) UserQuests(ctx context.Context, userID string, filter model.QuestFilter, sort model.QuestSort) ([]model.UserQuest, error) {
	if _, err := p.ledger.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	records, err := p.tracker.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	byQuest := make(map[string]*model.QuestProgress, len(records))
	for _, r := range records {
		byQuest[r.QuestID] = r
	}

	quests := p.catalog.List(filter, sort)
	out := make([]model.UserQuest, len(quests))
	for i, q := range quests {
		progress := byQuest[q.ID]
		if progress == nil {
			progress = model.NotStarted(userID, q.ID)
		}
		out[i] = model.UserQuest{Quest: q, Progress: *progress}
	}
	return out, nil
}

type Profile struct {
	User            *model.User   `json:"user"`
	Level           int           `json:"level"`
	QuestsCompleted int           `json:"quests_completed"`
	LifetimeEarned  int64         `json:"lifetime_earned"`
	CompletedQuests []model.Quest `json:"completed_quests"`
	// Quests completed inside the current level band, out of LevelBand.
	LevelProgress int `json:"level_progress"`
	LevelBand     int `json:"level_band"`
}

func (p *Projector) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := p.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	done, band := p.ledger.Policy().NextLevelQuests(user)
	return &Profile{
		User:            user,
		Level:           p.ledger.LevelFor(user),
		QuestsCompleted: user.CompletedCount(),
		LifetimeEarned:  user.LifetimeEarned,
		CompletedQuests: p.completed(user),
		LevelProgress:   done,
		LevelBand:       band,
	}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	return s.Projector.Profile(ctx, userID)
}
