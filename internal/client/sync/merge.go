package sync

import (
	"sort"

	"github.com/akozadaev/inkpad/internal/client/models"
)

// mergeSnapshots reconciles the full local and remote note sets using
// last-writer-wins on the effective update timestamp (integer milliseconds,
// plain >= comparison). For every id in either set:
//
//   - only local: keep local (possibly an offline creation not yet pushed);
//   - only remote: adopt remote;
//   - both: the greater timestamp wins, ties go to the remote value —
//     unless the id is suppressed, in which case local always wins.
//
// It returns the merged set plus the local winners that differ from their
// remote counterpart (including notes the remote has never seen) and
// therefore need pushing back out. Output
// order is deterministic (sorted by id) so repeated merges of the same
// inputs are identical.
func mergeSnapshots(local, remote []*models.Note, suppressed func(id string) bool) (merged, localWins []*models.Note) {
	localByID := make(map[string]*models.Note, len(local))
	for _, n := range local {
		localByID[n.ID] = n
	}
	remoteByID := make(map[string]*models.Note, len(remote))
	for _, n := range remote {
		remoteByID[n.ID] = n
	}

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids = append(ids, id)
	}
	for id := range remoteByID {
		if _, ok := localByID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		ln, haveLocal := localByID[id]
		rn, haveRemote := remoteByID[id]

		switch {
		case haveLocal && !haveRemote:
			// Possibly an offline creation the remote has never seen;
			// re-pushing is idempotent either way.
			merged = append(merged, ln)
			localWins = append(localWins, ln)
		case !haveLocal && haveRemote:
			merged = append(merged, rn)
		default:
			if suppressed(id) || ln.EffectiveUpdatedAt() > rn.EffectiveUpdatedAt() {
				merged = append(merged, ln)
				if !ln.Equal(rn) {
					localWins = append(localWins, ln)
				}
			} else {
				merged = append(merged, rn)
			}
		}
	}

	return merged, localWins
}
