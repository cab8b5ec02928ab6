package grouping

import (
	"time"

	"classplanner/internal/models"
)

// stageIndex looks up a session's stages by template stage id first and
// by raw id second
type stageIndex struct {
	byTemplateStageID map[string]models.Stage
	byID              map[string]models.Stage
}

func newStageIndex(stages []models.Stage) stageIndex {
	ix := stageIndex{
		byTemplateStageID: make(map[string]models.Stage, len(stages)),
		byID:              make(map[string]models.Stage, len(stages)),
	}
	for _, st := range stages {
		if st.TemplateStageID != "" {
			if _, dup := ix.byTemplateStageID[st.TemplateStageID]; !dup {
				ix.byTemplateStageID[st.TemplateStageID] = st
			}
		}
		if _, dup := ix.byID[st.ID]; !dup {
			ix.byID[st.ID] = st
		}
	}
	return ix
}

func (ix stageIndex) lookup(key string) (models.Stage, bool) {
	if st, ok := ix.byTemplateStageID[key]; ok {
		return st, true
	}
	st, ok := ix.byID[key]
	return st, ok
}

type coreCompletion struct {
	stages    []models.Stage
	completed int
	// started counts canonical stages completed in at least one session
	started int
}

func propagate(sorted []models.Session, now time.Time) coreCompletion {
	res := coreCompletion{stages: []models.Stage{}}
	if len(sorted) == 0 {
		return res
	}

	indexes := make([]stageIndex, len(sorted))
	for i, s := range sorted {
		indexes[i] = newStageIndex(s.Stages)
	}

	for _, canonical := range sorted[0].Stages {
		if !canonical.IsCore {
			continue
		}
		key := canonical.Key()
		all, some := true, false
		for _, ix := range indexes {
			st, ok := ix.lookup(key)
			if ok && st.IsCompleted {
				some = true
			} else {
				all = false
			}
		}

		stage := canonical
		stage.IsCompleted = all
		stage.CompletionDate = nil
		if all {
			completedAt := now
			stage.CompletionDate = &completedAt
			res.completed++
		}
		if some {
			res.started++
		}
		res.stages = append(res.stages, stage)
	}
	return res
}

// PropagateCoreStages computes the group-level core stages of one group.
// The first session by date defines the canonical core stages; each is
// complete only when a matching stage is completed in every session
func PropagateCoreStages(sessions []models.Session, now time.Time) []models.Stage {
	return propagate(SortByDate(sessions), now).stages
}

// SetCoreStage marks every stage matching stageKey in every session as
// completed or not. Matching is by template stage id or raw id. Completed
// stages without a completion date are stamped with now. The returned
// sessions are copies; only those that changed are listed in changed
func SetCoreStage(sessions []models.Session, stageKey string, completed bool, now time.Time) (updated []models.Session, changed []string) {
	updated = make([]models.Session, len(sessions))
	for i, s := range sessions {
		cp := s.Copy()
		touched := false
		for j, st := range cp.Stages {
			if st.TemplateStageID != stageKey && st.ID != stageKey {
				continue
			}
			if st.IsCompleted == completed && (!completed || st.CompletionDate != nil) {
				continue
			}
			cp.Stages[j].IsCompleted = completed
			cp.Stages[j].CompletionDate = nil
			if completed {
				completedAt := now
				cp.Stages[j].CompletionDate = &completedAt
			}
			touched = true
		}
		if touched {
			changed = append(changed, cp.ID)
		}
		updated[i] = cp
	}
	return updated, changed
}
