// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import "github.com/gogpu/spvtrace/spirv"

// node is a statement of the rebuilt control-flow tree.
type node interface{ isNode() }

// blockNode holds the straight-line instructions of one block, without its
// merge and terminator.
type blockNode struct {
	label uint32
	body  []spirv.Instruction
}

type ifNode struct {
	cond   uint32
	accept []node
	reject []node
}

type loopNode struct {
	body       []node
	continuing []node
}

type switchCase struct {
	values    []uint32
	isDefault bool
	body      []node
}

type switchNode struct {
	selector uint32
	cases    []switchCase
}

type jumpKind uint8

const (
	jumpBreak jumpKind = iota
	jumpContinue
	jumpReturn
	jumpDiscard
)

type jumpNode struct {
	kind  jumpKind
	value uint32 // returned id, zero for none
}

func (*blockNode) isNode()  {}
func (*ifNode) isNode()     {}
func (*loopNode) isNode()   {}
func (*switchNode) isNode() {}
func (*jumpNode) isNode()   {}

// region bounds a walk over the blocks of a construct.
type region struct {
	end        uint32 // label that closes the region; 0 runs to a return
	breakTo    uint32 // merge of the innermost loop or switch
	continueTo uint32 // continue target of the innermost loop
	loopMerge  uint32 // merge of the innermost loop
}

// structurizer rebuilds structured statements from the merge instructions of
// a function.
type structurizer struct {
	blocks  map[uint32]*spirv.Block
	visited map[uint32]bool
}

func structurize(fn *spirv.Function) ([]node, error) {
	if len(fn.Blocks) == 0 {
		return nil, errorf(spirv.OpFunction, fn.ID(), "function has no body")
	}
	s := &structurizer{
		blocks:  make(map[uint32]*spirv.Block, len(fn.Blocks)),
		visited: make(map[uint32]bool, len(fn.Blocks)),
	}
	for i := range fn.Blocks {
		s.blocks[fn.Blocks[i].ID()] = &fn.Blocks[i]
	}
	return s.region(fn.Blocks[0].ID(), region{}, 0)
}

// split separates a block into its straight-line body, merge and terminator.
func split(b *spirv.Block) ([]spirv.Instruction, *spirv.Instruction, *spirv.Instruction) {
	term := b.Terminator()
	merge := b.Merge()
	n := len(b.Body) - 1
	if merge != nil {
		n--
	}
	if n < 0 {
		n = 0
	}
	return b.Body[:n], merge, term
}

// region walks blocks from label until r.end. header is a loop header that
// has already been entered and must be emitted as a plain block.
func (s *structurizer) region(label uint32, r region, header uint32) ([]node, error) {
	var out []node
	for label != r.end || label == header {
		b, ok := s.blocks[label]
		if !ok {
			return nil, errorf(spirv.OpBranch, label, "branch to unknown block")
		}
		body, merge, term := split(b)
		if term == nil || !term.Opcode.IsTerminator() {
			return nil, errorf(spirv.OpLabel, label, "block has no terminator")
		}
		if label != header {
			if s.visited[label] {
				return nil, errorf(spirv.OpLabel, label, "block is reached twice; control flow is not structured")
			}
			s.visited[label] = true
			if merge != nil && merge.Opcode == spirv.OpLoopMerge {
				loop, err := s.loop(label, merge, r)
				if err != nil {
					return nil, err
				}
				out = append(out, loop)
				label = merge.Words[0]
				continue
			}
		}
		header = 0

		if len(body) > 0 {
			out = append(out, &blockNode{label: label, body: body})
		}
		next, nodes, err := s.branch(merge, term, r)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
		if next == 0 {
			return out, nil
		}
		label = next
	}
	return out, nil
}

func (s *structurizer) loop(header uint32, merge *spirv.Instruction, outer region) (node, error) {
	mergeLabel, cont := merge.Words[0], merge.Words[1]
	body, err := s.region(header, region{
		end:        cont,
		breakTo:    mergeLabel,
		continueTo: cont,
		loopMerge:  mergeLabel,
	}, header)
	if err != nil {
		return nil, err
	}
	loop := &loopNode{body: body}
	if cont != header {
		loop.continuing, err = s.region(cont, region{
			end:       header,
			breakTo:   mergeLabel,
			loopMerge: mergeLabel,
		}, 0)
		if err != nil {
			return nil, err
		}
	}
	return loop, nil
}

// jump classifies a branch to target as break or continue.
func (s *structurizer) jump(target uint32, r region) (*jumpNode, bool, error) {
	switch {
	case target == r.continueTo && target != 0:
		return &jumpNode{kind: jumpContinue}, true, nil
	case target == r.breakTo && target != 0:
		return &jumpNode{kind: jumpBreak}, true, nil
	case target == r.loopMerge && target != 0:
		return nil, false, errorf(spirv.OpBranch, target, "loop exit from inside a switch is not supported")
	}
	return nil, false, nil
}

// branch lowers a terminator. It returns the label where the walk continues,
// or zero when the region ends here.
func (s *structurizer) branch(merge, term *spirv.Instruction, r region) (uint32, []node, error) {
	switch term.Opcode {
	case spirv.OpReturn:
		return 0, []node{&jumpNode{kind: jumpReturn}}, nil
	case spirv.OpReturnValue:
		return 0, []node{&jumpNode{kind: jumpReturn, value: term.Words[0]}}, nil
	case spirv.OpKill:
		return 0, []node{&jumpNode{kind: jumpDiscard}}, nil
	case spirv.OpUnreachable:
		return 0, nil, nil
	case spirv.OpBranch:
		return s.goTo(term.Words[0], r)
	case spirv.OpBranchConditional:
		cond, accept, reject := term.Words[0], term.Words[1], term.Words[2]
		if merge != nil && merge.Opcode == spirv.OpSelectionMerge {
			return s.selection(cond, accept, reject, merge.Words[0], r)
		}
		if accept == reject {
			return s.goTo(accept, r)
		}
		return s.conditional(cond, accept, reject, r)
	case spirv.OpSwitch:
		if merge == nil || merge.Opcode != spirv.OpSelectionMerge {
			return 0, nil, errorf(term.Opcode, term.Words[0], "switch without a selection merge")
		}
		return s.switchCases(term, merge.Words[0], r)
	}
	return 0, nil, errorf(term.Opcode, 0, "terminator is not supported")
}

func (s *structurizer) goTo(target uint32, r region) (uint32, []node, error) {
	if target == r.end {
		return 0, nil, nil
	}
	j, ok, err := s.jump(target, r)
	if err != nil {
		return 0, nil, err
	}
	if ok {
		return 0, []node{j}, nil
	}
	return target, nil, nil
}

func (s *structurizer) selection(cond, accept, reject, mergeLabel uint32, r region) (uint32, []node, error) {
	inner := r
	inner.end = mergeLabel
	a, err := s.region(accept, inner, 0)
	if err != nil {
		return 0, nil, err
	}
	b, err := s.region(reject, inner, 0)
	if err != nil {
		return 0, nil, err
	}
	var nodes []node
	if len(a) > 0 || len(b) > 0 {
		nodes = append(nodes, &ifNode{cond: cond, accept: a, reject: b})
	}
	if mergeLabel == r.end {
		return 0, nodes, nil
	}
	return mergeLabel, nodes, nil
}

// conditional lowers a branch without a merge, as loop headers and
// break-if blocks produce. One side must leave the construct.
func (s *structurizer) conditional(cond, accept, reject uint32, r region) (uint32, []node, error) {
	exit := func(target uint32) ([]node, bool, error) {
		if target == r.end {
			return nil, true, nil
		}
		j, ok, err := s.jump(target, r)
		if ok {
			return []node{j}, true, err
		}
		return nil, false, err
	}
	a, aExits, err := exit(accept)
	if err != nil {
		return 0, nil, err
	}
	b, bExits, err := exit(reject)
	if err != nil {
		return 0, nil, err
	}

	switch {
	case aExits && bExits:
		if len(a) == 0 && len(b) == 0 {
			return 0, nil, nil
		}
		return 0, []node{&ifNode{cond: cond, accept: a, reject: b}}, nil
	case aExits:
		if len(a) == 0 {
			// Falling out of the region on accept: the rest runs on reject.
			rest, err := s.region(reject, r, 0)
			if err != nil {
				return 0, nil, err
			}
			return 0, []node{&ifNode{cond: cond, reject: rest}}, nil
		}
		return reject, []node{&ifNode{cond: cond, accept: a}}, nil
	case bExits:
		if len(b) == 0 {
			rest, err := s.region(accept, r, 0)
			if err != nil {
				return 0, nil, err
			}
			return 0, []node{&ifNode{cond: cond, accept: rest}}, nil
		}
		return accept, []node{&ifNode{cond: cond, reject: b}}, nil
	}
	return 0, nil, errorf(spirv.OpBranchConditional, cond, "conditional branch without a merge is not structured")
}

func (s *structurizer) switchCases(term *spirv.Instruction, mergeLabel uint32, r region) (uint32, []node, error) {
	selector, def := term.Words[0], term.Words[1]
	inner := r
	inner.end = mergeLabel
	inner.breakTo = mergeLabel

	sw := &switchNode{selector: selector}
	index := make(map[uint32]int)
	pairs := term.Words[2:]
	for i := 0; i+1 < len(pairs); i += 2 {
		value, target := pairs[i], pairs[i+1]
		if target == def {
			continue
		}
		if at, ok := index[target]; ok {
			sw.cases[at].values = append(sw.cases[at].values, value)
			continue
		}
		index[target] = len(sw.cases)
		sw.cases = append(sw.cases, switchCase{values: []uint32{value}})
	}
	sw.cases = append(sw.cases, switchCase{isDefault: true})

	targets := make([]uint32, len(sw.cases))
	for target, at := range index {
		targets[at] = target
	}
	targets[len(targets)-1] = def
	for i, target := range targets {
		body, err := s.region(target, inner, 0)
		if err != nil {
			return 0, nil, err
		}
		sw.cases[i].body = body
	}

	if mergeLabel == r.end {
		return 0, []node{sw}, nil
	}
	return mergeLabel, []node{sw}, nil
}
