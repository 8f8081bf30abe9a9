package runner_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sortviz/internal/render"
	"github.com/san-kum/sortviz/internal/runner"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]int
	hook   func(n int)
}

func (r *recorder) Snapshot(ctx context.Context, data []int) error {
	r.mu.Lock()
	r.frames = append(r.frames, slices.Clone(data))
	n := len(r.frames)
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// frameRenderer records what reaches the renderer through a throttle.
type frameRenderer struct {
	frames [][]int
}

func (f *frameRenderer) Render(ctx context.Context, data []int) error {
	f.frames = append(f.frames, slices.Clone(data))
	return nil
}

func (f *frameRenderer) RenderNow(data []int) error { return f.Render(context.Background(), data) }

func bubbleSort(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
	for i := 0; i < len(data); i++ {
		for j := 0; j < len(data)-i-1; j++ {
			if data[j] > data[j+1] {
				data[j], data[j+1] = data[j+1], data[j]
				if err := snapshot(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func countUp(steps int) runner.AlgorithmFunc {
	return func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
		for i := 0; i < steps; i++ {
			data[0]++
			if err := snapshot(); err != nil {
				return err
			}
		}
		return nil
	}
}

var _ = Describe("Runner", func() {
	var (
		rec *recorder
		r   *runner.Runner
		ctx context.Context
	)

	BeforeEach(func() {
		rec = &recorder{}
		r = runner.New(rec)
		ctx = context.Background()
	})

	Describe("Run", func() {
		It("completes and keeps the mutated array", func() {
			data := []int{3, 1, 2}
			outcome, err := r.Run(ctx, bubbleSort, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Completed))
			Expect(data).To(Equal([]int{1, 2, 3}))
			Expect(rec.count()).To(Equal(2))
		})

		It("forwards every snapshot to the snapshooter with the live array", func() {
			data := []int{0}
			_, err := r.Run(ctx, countUp(3), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.frames).To(Equal([][]int{{1}, {2}, {3}}))
		})

		It("completes an algorithm that never snapshots despite a pending cancel", func() {
			started := make(chan struct{})
			release := make(chan struct{})
			algo := func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
				close(started)
				<-release
				data[0] = 42
				return nil
			}

			data := []int{0}
			done := make(chan runner.Outcome, 1)
			go func() {
				defer GinkgoRecover()
				outcome, err := r.Run(ctx, algo, data)
				Expect(err).NotTo(HaveOccurred())
				done <- outcome
			}()

			Eventually(started).Should(BeClosed())
			r.Cancel()
			Expect(r.CancelRequested()).To(BeTrue())
			close(release)

			Eventually(done).Should(Receive(Equal(runner.Completed)))
			Expect(data).To(Equal([]int{42}))
			Expect(rec.count()).To(BeZero())
		})

		It("returns other algorithm errors unchanged with Failed", func() {
			boom := errors.New("boom")
			algo := func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
				data[0] = 7
				return fmt.Errorf("step 3: %w", boom)
			}
			data := []int{0}
			outcome, err := r.Run(ctx, algo, data)
			Expect(outcome).To(Equal(runner.Failed))
			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(Equal("step 3: boom"))
			Expect(data).To(Equal([]int{7}))
		})

		It("reports snapshooter errors as Failed", func() {
			broken := errors.New("surface gone")
			r = runner.New(runner.SnapshooterFunc(func(ctx context.Context, data []int) error {
				return broken
			}))
			outcome, err := r.Run(ctx, countUp(5), []int{0})
			Expect(outcome).To(Equal(runner.Failed))
			Expect(err).To(MatchError(broken))
		})

		It("rejects a nil algorithm", func() {
			outcome, err := r.Run(ctx, nil, []int{1})
			Expect(outcome).To(Equal(runner.Failed))
			Expect(err).To(MatchError(runner.ErrNilAlgorithm))
			Expect(r.Running()).To(BeFalse())
		})

		It("rejects a concurrent run", func() {
			started := make(chan struct{})
			release := make(chan struct{})
			algo := func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
				close(started)
				<-release
				return nil
			}
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				_, err := r.Run(ctx, algo, []int{0})
				Expect(err).NotTo(HaveOccurred())
			}()

			Eventually(started).Should(BeClosed())
			Expect(r.Running()).To(BeTrue())
			outcome, err := r.Run(ctx, countUp(1), []int{0})
			Expect(outcome).To(Equal(runner.Failed))
			Expect(err).To(MatchError(runner.ErrAlreadyRunning))

			close(release)
			Eventually(done).Should(BeClosed())
			Expect(r.Running()).To(BeFalse())
		})
	})

	Describe("Cancel", func() {
		It("does nothing without an active run", func() {
			r.Cancel()
			Expect(r.CancelRequested()).To(BeFalse())

			outcome, err := r.Run(ctx, countUp(3), []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Completed))
			Expect(rec.count()).To(Equal(3))
		})

		It("aborts at the next snapshot and keeps partial progress", func() {
			rec.hook = func(n int) {
				if n == 3 {
					r.Cancel()
				}
			}
			data := []int{0}
			outcome, err := r.Run(ctx, countUp(100), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Cancelled))
			Expect(rec.count()).To(Equal(3))
			Expect(data).To(Equal([]int{4}))
		})

		It("is idempotent while a run is active", func() {
			rec.hook = func(n int) {
				if n == 1 {
					r.Cancel()
					r.Cancel()
				}
			}
			outcome, err := r.Run(ctx, countUp(10), []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Cancelled))
		})

		It("treats a wrapped cancellation signal as Cancelled", func() {
			algo := func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
				for {
					if err := snapshot(); err != nil {
						return fmt.Errorf("pass aborted: %w", err)
					}
				}
			}
			rec.hook = func(n int) { r.Cancel() }
			outcome, err := r.Run(ctx, algo, []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Cancelled))
		})

		It("decides by the returned error when the algorithm swallows the signal", func() {
			algo := func(ctx context.Context, data []int, snapshot runner.SnapshotFunc) error {
				_ = snapshot()
				_ = snapshot()
				return nil
			}
			rec.hook = func(n int) { r.Cancel() }
			outcome, err := r.Run(ctx, algo, []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Completed))
			Expect(rec.count()).To(Equal(1))
		})

		It("resets between runs", func() {
			rec.hook = func(n int) {
				if n == 1 {
					r.Cancel()
				}
			}
			outcome, _ := r.Run(ctx, countUp(5), []int{0})
			Expect(outcome).To(Equal(runner.Cancelled))
			Expect(r.Running()).To(BeFalse())
			Expect(r.CancelRequested()).To(BeFalse())

			rec.hook = nil
			outcome, err := r.Run(ctx, countUp(5), []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Completed))
		})
	})

	Describe("with a throttled renderer", func() {
		It("sorts and renders the final state", func() {
			frames := &frameRenderer{}
			throttle, err := render.NewThrottle(frames, 1)
			Expect(err).NotTo(HaveOccurred())
			r = runner.New(throttle)

			data := []int{8, 1, 6, 3, 4, 5, 2, 7, 0}
			outcome, err := r.Run(ctx, bubbleSort, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(runner.Completed))

			want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
			Expect(data).To(Equal(want))
			Expect(frames.frames).NotTo(BeEmpty())
			Expect(frames.frames[len(frames.frames)-1]).To(Equal(want))
			Expect(throttle.Frames()).To(BeNumerically("==", len(frames.frames)))
		})

		It("renders one frame in k", func() {
			frames := &frameRenderer{}
			throttle, err := render.NewThrottle(frames, 3)
			Expect(err).NotTo(HaveOccurred())
			r = runner.New(throttle)

			_, err = r.Run(ctx, countUp(7), []int{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(frames.frames).To(Equal([][]int{{1}, {4}, {7}}))
		})
	})
})

var _ = Describe("Outcome", func() {
	DescribeTable("String",
		func(o runner.Outcome, want string) {
			Expect(o.String()).To(Equal(want))
		},
		Entry("completed", runner.Completed, "completed"),
		Entry("cancelled", runner.Cancelled, "cancelled"),
		Entry("failed", runner.Failed, "failed"),
		Entry("unknown", runner.Outcome(9), "unknown"),
	)
})
