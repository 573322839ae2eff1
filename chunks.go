package main

import "math"

// ChunkSize is the fixed width of one horizontal level chunk
const ChunkSize = 100.0

// ChunkIndex buckets a level's objects into fixed-width horizontal chunks
// for O(1) neighborhood queries. The index holds arena indices into the
// level's object slice and is rebuilt whole whenever the level changes,
// never patched in place. Within a chunk, candidates keep insertion order:
// the resolver's first-match-wins rule depends on it.
type ChunkIndex struct {
	objects  []GameObject
	chunks   map[int][]int
	minChunk int
	maxChunk int
}

// BuildChunkIndex builds the index as a pure function of the object list.
// An object is registered in every chunk its [X, X+TileSize] extent
// overlaps, so boundary-spanning tiles are found from either side.
func BuildChunkIndex(objects []GameObject) *ChunkIndex {
	ci := &ChunkIndex{
		objects: objects,
		chunks:  make(map[int][]int),
	}
	empty := true
	for i, obj := range objects {
		if math.IsNaN(obj.X) || math.IsInf(obj.X, 0) {
			continue
		}
		first := chunkOf(obj.X)
		last := chunkOf(obj.X + TileSize)
		for c := first; c <= last; c++ {
			ci.chunks[c] = append(ci.chunks[c], i)
		}
		if empty || first < ci.minChunk {
			ci.minChunk = first
		}
		if empty || last > ci.maxChunk {
			ci.maxChunk = last
		}
		empty = false
	}
	return ci
}

func chunkOf(x float64) int {
	return int(math.Floor(x / ChunkSize))
}

// ChunkOf returns the chunk id containing the given x coordinate
func (ci *ChunkIndex) ChunkOf(x float64) int {
	return chunkOf(x)
}

// Object returns the arena object for an index returned by Query
func (ci *ChunkIndex) Object(i int) *GameObject {
	return &ci.objects[i]
}

// Len returns the number of objects in the arena
func (ci *ChunkIndex) Len() int {
	return len(ci.objects)
}

// Query returns the arena indices of all objects registered in chunks
// [from, to], chunk by chunk in insertion order. A tile spanning a chunk
// boundary can appear twice; resolution outcomes are unaffected because
// duplicate candidates classify identically.
func (ci *ChunkIndex) Query(from, to int) []int {
	return ci.QueryBuf(from, to, nil)
}

// QueryBuf appends results to buf and returns the extended slice, avoiding
// per-call allocation in the sub-step loop
func (ci *ChunkIndex) QueryBuf(from, to int, buf []int) []int {
	if from < ci.minChunk {
		from = ci.minChunk
	}
	if to > ci.maxChunk {
		to = ci.maxChunk
	}
	for c := from; c <= to; c++ {
		buf = append(buf, ci.chunks[c]...)
	}
	return buf
}
