package catalog

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/util"
)

// PruneOp is the action applied to one snapshot during retention.
type PruneOp string

const (
	OpPromote PruneOp = "promote"
	OpDelete  PruneOp = "delete"
)

// PruneAction is one step of a retention plan.
type PruneAction struct {
	Record  Record
	Op      PruneOp
	ToQueue string // promotions only
}

// ValidateQueueSpecs checks that queue ages line up with the passthrough
// time of the preceding queue, so a snapshot always ages enough to qualify
// for the next queue before it overflows the current one.
func ValidateQueueSpecs(specs []config.QueueSpec) error {
	if len(specs) == 0 {
		return errors.Wrap(errdefs.ErrInput, "no retention queues configured")
	}

	passthrough := 1
	for _, spec := range specs {
		if spec.Length <= 0 {
			return errors.Wrapf(errdefs.ErrInput, "queue %q has non-positive length %d", spec.Name, spec.Length)
		}
		if spec.Age < passthrough {
			return errors.Wrapf(errdefs.ErrInput,
				"queue %q has minimum age of %d days, but backups already take %d days to get through the previous queue",
				spec.Name, spec.Age, passthrough)
		}
		passthrough = spec.Age * spec.Length
	}
	if passthrough <= 0 {
		return errors.Wrapf(errdefs.ErrInput, "last queue has invalid passthrough time of %d days", passthrough)
	}
	return nil
}

// PlanPrune computes retention actions without touching disk. Per queue,
// the newest Length complete snapshots are kept; older overflow is promoted
// into the next queue when spaced at least that queue's age apart, and
// deleted otherwise. Snapshots in queues absent from the specs are left
// alone. In-progress and failed records are never pruned.
func (c *Catalog) PlanPrune(specs []config.QueueSpec) ([]PruneAction, error) {
	if err := ValidateQueueSpecs(specs); err != nil {
		return nil, err
	}

	records, err := c.List()
	if err != nil {
		return nil, err
	}

	specIndex := map[string]int{}
	for i, s := range specs {
		specIndex[s.Name] = i
	}

	// newest-first per queue
	byQueue := map[string][]Record{}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Status != StatusComplete {
			continue
		}
		if _, known := specIndex[r.Queue]; !known {
			log.WithField("id", r.ID).Warningf("snapshot queue %q not in retention config, leaving alone", r.Queue)
			continue
		}
		byQueue[r.Queue] = append(byQueue[r.Queue], r)
	}

	var actions []PruneAction
	for i, spec := range specs {
		members := byQueue[spec.Name]
		if len(members) <= spec.Length {
			continue
		}

		var next *config.QueueSpec
		if i+1 < len(specs) {
			next = &specs[i+1]
		}

		// overflow, oldest first
		for j := len(members) - 1; j >= spec.Length; j-- {
			r := members[j]
			if next == nil {
				actions = append(actions, PruneAction{Record: r, Op: OpDelete})
				continue
			}

			nextMembers := byQueue[next.Name]
			spaced := len(nextMembers) == 0 ||
				r.CreatedAt.Sub(nextMembers[0].CreatedAt) >= time.Duration(next.Age)*24*time.Hour
			if spaced {
				actions = append(actions, PruneAction{Record: r, Op: OpPromote, ToQueue: next.Name})
				// promoted snapshot becomes the newest member of the next queue
				promoted := r
				promoted.Queue = next.Name
				byQueue[next.Name] = append([]Record{promoted}, nextMembers...)
			} else {
				actions = append(actions, PruneAction{Record: r, Op: OpDelete})
			}
		}
	}
	return actions, nil
}

// ApplyPrune executes a plan: promotions rename the snapshot directory and
// rewrite its record under the new queue, deletions remove both.
func (c *Catalog) ApplyPrune(actions []PruneAction) error {
	for _, a := range actions {
		switch a.Op {
		case OpDelete:
			if err := fsio.RemoveAll(c.SnapshotDir(a.Record.ID)); err != nil {
				return errors.Wrapf(errdefs.ErrStorage, "delete snapshot %q: %v", a.Record.ID, err)
			}
			if fsio.Exists(c.recordPath(a.Record.ID)) {
				if err := fsio.Remove(c.recordPath(a.Record.ID)); err != nil {
					return errors.Wrapf(errdefs.ErrStorage, "delete record %q: %v", a.Record.ID, err)
				}
			}
			log.WithField("id", a.Record.ID).Info("pruned snapshot")

		case OpPromote:
			newRec := a.Record
			newRec.Queue = a.ToQueue
			newRec.ID = a.ToQueue + "-" + a.Record.CreatedAt.Format(config.TimestampLayout)

			if err := fsio.Rename(c.SnapshotDir(a.Record.ID), c.SnapshotDir(newRec.ID)); err != nil {
				return errors.Wrapf(errdefs.ErrStorage, "promote snapshot %q: %v", a.Record.ID, err)
			}
			if err := util.WriteJSON(c.recordPath(newRec.ID), newRec); err != nil {
				return errors.Wrapf(errdefs.ErrStorage, "write promoted record %q: %v", newRec.ID, err)
			}
			if fsio.Exists(c.recordPath(a.Record.ID)) {
				if err := fsio.Remove(c.recordPath(a.Record.ID)); err != nil {
					return errors.Wrapf(errdefs.ErrStorage, "remove old record %q: %v", a.Record.ID, err)
				}
			}
			log.WithFields(log.Fields{"id": a.Record.ID, "to": newRec.ID}).Info("promoted snapshot")
		}
	}
	return nil
}
