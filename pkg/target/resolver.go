package target

import (
	"strconv"
	"strings"

	"github.com/gitping/gitping/pkg/types"
)

// ResolveTargets computes the set of subscriber ids that should receive an
// event. Rules, in priority order:
//
//  1. An explicit targetUsers list in the payload is unioned in verbatim.
//  2. Event-type derivation: merge requests notify reviewers, assignees and
//     the author; issues notify assignees and the author; everything else
//     notifies only the triggering actor, which keeps the default narrow.
//  3. Ids are normalized to trimmed non-empty strings and de-duplicated.
//
// The result preserves first-seen order.
func ResolveTargets(info types.EventInfo, p *types.WebhookPayload) []string {
	targets := newIDSet()

	// Rule 1: explicit override from the sender.
	for _, v := range p.TargetUsers {
		switch id := v.(type) {
		case string:
			targets.add(id)
		case float64:
			targets.add(strconv.FormatFloat(id, 'f', -1, 64))
		case int64:
			targets.add(strconv.FormatInt(id, 10))
		}
	}

	oa := p.ObjectAttributes
	if oa == nil {
		oa = &types.ObjectAttributes{}
	}

	// Rule 2: derive participants from the event itself.
	switch info.EventType {
	case types.EventTypeMergeRequest:
		targets.addInts(oa.ReviewerIDs)
		targets.addInts(oa.AssigneeIDs)
		targets.addInt(oa.AssigneeID)
		targets.addInt(oa.AuthorID)
		targets.addUsers(p.Reviewers)
		targets.addUsers(p.Assignees)
		if p.Assignee != nil {
			targets.addInt(p.Assignee.ID)
		}
	case types.EventTypeIssue:
		targets.addInts(oa.AssigneeIDs)
		targets.addInt(oa.AssigneeID)
		targets.addInt(oa.AuthorID)
		targets.addUsers(p.Assignees)
		if p.Assignee != nil {
			targets.addInt(p.Assignee.ID)
		}
	default:
		// Actor only. The candidate fields vary by event type but name the
		// same person when more than one is present.
		if p.User != nil {
			targets.addInt(p.User.ID)
		}
		targets.addInt(p.UserID)
		targets.addInt(oa.UserID)
		targets.addInt(oa.AuthorID)
	}

	return targets.list
}

// idSet is an insertion-ordered string set
type idSet struct {
	seen map[string]struct{}
	list []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{}), list: []string{}}
}

func (s *idSet) add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.list = append(s.list, id)
}

func (s *idSet) addInt(id int64) {
	if id == 0 {
		return
	}
	s.add(strconv.FormatInt(id, 10))
}

func (s *idSet) addInts(ids []int64) {
	for _, id := range ids {
		s.addInt(id)
	}
}

func (s *idSet) addUsers(users []types.WebhookUser) {
	for _, u := range users {
		s.addInt(u.ID)
	}
}
