package extract

import (
	"sort"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// EntityExtractor finds typed entities in one document version
type EntityExtractor struct {
	rules *rules.Set
}

// NewEntityExtractor creates an extractor over a compiled rule set
func NewEntityExtractor(set *rules.Set) *EntityExtractor {
	if set == nil {
		set = rules.Default()
	}
	return &EntityExtractor{rules: set}
}

// Extract scans text with every pattern, normalizes and scores each match,
// resolves same-type overlaps and returns the survivors sorted by offset.
// It fails only for empty or oversize text.
func (e *EntityExtractor) Extract(text string) (model.EntitySet, error) {
	if err := e.rules.CheckText("text", text); err != nil {
		return model.EntitySet{}, err
	}

	// 1. Collect raw matches
	var candidates []model.Entity
	minConfidence := e.rules.Config.Entities.MinConfidence
	for _, p := range e.rules.Patterns {
		normalize := normalizerFor(p.Type)
		names := p.Regexp.SubexpNames()

		for _, loc := range p.Regexp.FindAllStringSubmatchIndex(text, -1) {
			m := Match{
				Raw:    text[loc[0]:loc[1]],
				Groups: make(map[string]string),
				Rule:   p,
			}
			for i, name := range names {
				if name == "" || loc[2*i] < 0 {
					continue
				}
				m.Groups[name] = text[loc[2*i]:loc[2*i+1]]
			}

			// 2. Normalize and score
			normalized, confidence := normalize(m)
			confidence = util.Round(util.Clamp01(confidence), 4)
			if confidence < minConfidence {
				continue
			}

			candidates = append(candidates, model.Entity{
				Type:       p.Type,
				Span:       model.Span{Start: loc[0], End: loc[1]},
				RawText:    m.Raw,
				Normalized: normalized,
				Confidence: confidence,
				Pattern:    p.Name,
			})
		}
	}

	// 3. Resolve overlaps within each type
	entities := resolveOverlaps(candidates)

	counts := make(map[model.EntityType]int, len(model.EntityTypes))
	for _, t := range model.EntityTypes {
		counts[t] = 0
	}
	for _, ent := range entities {
		counts[ent.Type]++
	}

	return model.EntitySet{Entities: entities, Counts: counts}, nil
}

// resolveOverlaps keeps exactly one entity from every group of overlapping
// same-type candidates: highest confidence, then longest span, then earliest start.
// A group is a connected chain, so A-B-C keeps one entity even when A and C are disjoint.
// Entities of different types may overlap freely.
func resolveOverlaps(candidates []model.Entity) []model.Entity {
	byType := make(map[model.EntityType][]model.Entity)
	for _, cand := range candidates {
		byType[cand.Type] = append(byType[cand.Type], cand)
	}

	var survivors []model.Entity
	for _, group := range byType {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Span.Start < group[j].Span.Start
		})

		best := group[0]
		reach := group[0].Span.End
		for _, cand := range group[1:] {
			if cand.Span.Start < reach {
				if outranks(cand, best) {
					best = cand
				}
				reach = max(reach, cand.Span.End)
				continue
			}
			survivors = append(survivors, best)
			best, reach = cand, cand.Span.End
		}
		survivors = append(survivors, best)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Type < b.Type
	})
	return survivors
}

// outranks reports whether a beats b: higher confidence, then longer span, then earlier start
func outranks(a, b model.Entity) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Span.Len() != b.Span.Len() {
		return a.Span.Len() > b.Span.Len()
	}
	return a.Span.Start < b.Span.Start
}
