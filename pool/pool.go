/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package pool implements a fixed-block memory pool: O(1) allocate/free
// of equal-sized blocks carved out of one preallocated slab.
//
// Go gives no safe way to validate an arbitrary pointer's membership in
// a slab, so blocks are handed out as BlockID index handles rather than
// []byte pointers; "pointer within slab range and block-aligned"
// becomes a bounds check on the index, which is exact and race-free
// where pointer arithmetic would need unsafe.
package pool

import (
	"sync"

	liberr "github.com/nabbar/iotgw/errors"
)

// BlockID identifies one block in a Pool's slab.
type BlockID int

// Pool preallocates numBlocks blocks of blockSize bytes and serves them
// from a LIFO free-list.
type Pool struct {
	mu sync.Mutex

	slab      []byte
	blockSize int
	numBlocks int

	freeList  []BlockID
	allocated []bool
}

// New preallocates a slab of numBlocks × blockSize bytes.
func New(numBlocks, blockSize int) (*Pool, error) {
	if numBlocks <= 0 || blockSize <= 0 {
		return nil, liberr.InvalidParam.Error(nil)
	}

	p := &Pool{
		slab:      make([]byte, numBlocks*blockSize),
		blockSize: blockSize,
		numBlocks: numBlocks,
		allocated: make([]bool, numBlocks),
	}
	p.rebuildFreeList()

	return p, nil
}

func (p *Pool) rebuildFreeList() {
	p.freeList = make([]BlockID, p.numBlocks)
	for i := 0; i < p.numBlocks; i++ {
		// push in descending order so Alloc() hands out block 0 first,
		// matching the slab's natural layout
		p.freeList[i] = BlockID(p.numBlocks - 1 - i)
		p.allocated[p.numBlocks-1-i] = false
	}
}

// Alloc pops a block off the free-list, zeroes it, and returns its id.
func (p *Pool) Alloc() (BlockID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.freeList) == 0 {
		return -1, liberr.PoolExhausted.Error(nil)
	}

	id := p.freeList[len(p.freeList)-1]
	p.freeList = p.freeList[:len(p.freeList)-1]
	p.allocated[id] = true

	clear(p.blockBytes(id))

	return id, nil
}

// Free validates id is within the slab and currently allocated, then
// pushes it back onto the free-list. A double-free is rejected and the
// pool's state is left unchanged.
func (p *Pool) Free(id BlockID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || int(id) >= p.numBlocks {
		return liberr.InvalidParam.Error(nil)
	}
	if !p.allocated[id] {
		return liberr.DoubleFree.Error(nil)
	}

	p.allocated[id] = false
	p.freeList = append(p.freeList, id)

	return nil
}

// Block returns the byte slice backing id. The caller must not retain
// it past the matching Free call.
func (p *Pool) Block(id BlockID) []byte {
	return p.blockBytes(id)
}

func (p *Pool) blockBytes(id BlockID) []byte {
	off := int(id) * p.blockSize
	return p.slab[off : off+p.blockSize]
}

// Reset rebuilds the free-list to cover every block, discarding all
// outstanding allocations. The caller must guarantee no references to
// previously allocated blocks remain in use.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuildFreeList()
}

func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.freeList)
}

func (p *Pool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.numBlocks - len(p.freeList)
}

func (p *Pool) Capacity() int {
	return p.numBlocks
}

func (p *Pool) BlockSize() int {
	return p.blockSize
}
