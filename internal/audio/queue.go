package audio

import (
	"sync"
)

// bufferQueue 输出缓冲区队列：混音器按顺序提交缓冲区，设备端按样本拉取。
// 缓冲区在被完整播放之前由队列持有，不做拷贝。
type bufferQueue struct {
	mu       sync.Mutex
	bufs     [][]int16
	offset   int // 队首缓冲区已读取的样本数
	consumed chan struct{}

	played    uint64
	underruns uint64
}

func newBufferQueue() *bufferQueue {
	return &bufferQueue{consumed: make(chan struct{}, 1)}
}

func (q *bufferQueue) push(buf []int16) {
	q.mu.Lock()
	q.bufs = append(q.bufs, buf)
	q.mu.Unlock()
}

func (q *bufferQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bufs)
}

// front 返回队首缓冲区的未读部分，队列为空时返回 nil。
// 缓冲区仍留在队列中，直到调用 pop。
func (q *bufferQueue) front() []int16 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.bufs) == 0 {
		return nil
	}
	return q.bufs[0][q.offset:]
}

// pop 释放队首缓冲区
func (q *bufferQueue) pop() {
	q.mu.Lock()
	if len(q.bufs) == 0 {
		q.mu.Unlock()
		return
	}
	q.bufs[0] = nil
	q.bufs = q.bufs[1:]
	q.offset = 0
	q.played++
	q.mu.Unlock()

	q.notify()
}

// fill 用排队的样本填满 out，不足部分补零并记一次欠载
func (q *bufferQueue) fill(out []int16) {
	q.mu.Lock()
	n := 0
	released := false
	for n < len(out) && len(q.bufs) > 0 {
		head := q.bufs[0]
		c := copy(out[n:], head[q.offset:])
		n += c
		q.offset += c
		if q.offset >= len(head) {
			q.bufs[0] = nil
			q.bufs = q.bufs[1:]
			q.offset = 0
			q.played++
			released = true
		}
	}
	if n < len(out) {
		clear(out[n:])
		q.underruns++
	}
	q.mu.Unlock()

	if released {
		q.notify()
	}
}

// flush 丢弃所有排队的缓冲区
func (q *bufferQueue) flush() {
	q.mu.Lock()
	dropped := len(q.bufs) > 0
	clear(q.bufs)
	q.bufs = q.bufs[:0]
	q.offset = 0
	q.mu.Unlock()

	if dropped {
		q.notify()
	}
}

func (q *bufferQueue) stats() (played, underruns uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.played, q.underruns
}

func (q *bufferQueue) notify() {
	select {
	case q.consumed <- struct{}{}:
	default:
	}
}
