package shoreline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/engine"
	"github.com/san-kum/shoresim/internal/engine/enginetest"
	"github.com/san-kum/shoresim/internal/logging"
	"github.com/san-kum/shoresim/internal/matlab"
	"github.com/san-kum/shoresim/internal/result"
	"github.com/san-kum/shoresim/internal/shoreline"
)

const paramFile = `# two transects, three stored steps
reftime: 2020-01-01
endofsimulation: 2020-03-01
dt: 0.0027397260273972603 # one day
storageinterval: 10
Hso: 1
phiw0: 315
x_mc: [0, 100]
y_mc: [0, 0]
outputdir: out
engine:
  model_dir: shorelines
output:
  timesteps: 3
  points: 2
`

func engineArrays() map[string]matlab.Array {
	return map[string]matlab.Array{
		"O.it": matlab.RowVector(0, 10, 20),
		"O.x":  matlab.NewArray([][]float64{{0, 0, 0}, {100, 100, 100}}),
		"O.y":  matlab.NewArray([][]float64{{0, 1.5, 2.5}, {0, -0.5, -1}}),
	}
}

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		dir    string
		path   string
		bridge *enginetest.Bridge
		runner *shoreline.Runner
	)

	BeforeEach(func() {
		ctx = logging.WithLogger(context.Background(), logging.Discard())
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "shoreline.yaml")
		Expect(os.WriteFile(path, []byte(paramFile), 0644)).To(Succeed())

		bridge = &enginetest.Bridge{Arrays: engineArrays()}
		runner = shoreline.NewRunner(bridge)
	})

	Describe("RunFile", func() {
		It("produces one row per step and point", func() {
			cfg, rep, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Output.Timesteps).To(Equal(3))

			table := rep.Table
			Expect(table.Steps()).To(Equal(3))
			Expect(table.Points).To(Equal(2))
			Expect(table.Len()).To(Equal(6))
			Expect(table.Columns).To(Equal([]string{"x", "y"}))
			Expect(table.Times[2]).To(BeTemporally("~", time.Date(2020, 1, 21, 0, 0, 0, 0, time.UTC), time.Second))

			last := table.Rows[5]
			Expect(last.Step).To(Equal(2))
			Expect(last.Point).To(Equal(1))
			Expect(last.Values).To(Equal([]float64{100, -1}))
		})

		It("opens and closes exactly one session per run", func() {
			_, _, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(bridge.Opens).To(Equal(1))
			Expect(bridge.Closes).To(Equal(1))

			_, _, err = runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(bridge.Opens).To(Equal(2))
			Expect(bridge.Closes).To(Equal(2))
		})

		It("returns identical tables for identical inputs", func() {
			_, first, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			_, second, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Table).To(Equal(first.Table))
		})

		It("passes typed parameters and the model path to the engine", func() {
			_, _, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(bridge.Calls).To(HaveLen(1))

			call := bridge.Calls[0]
			Expect(call.Function).To(Equal("ShorelineS"))
			Expect(call.Outputs).To(Equal([]string{"S", "O"}))
			Expect(call.Export).To(Equal([]string{"O.it", "O.x", "O.y"}))
			Expect(call.Paths).To(Equal([]string{filepath.Join(dir, "shorelines")}))

			lit, err := matlab.Encode(call.Args[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(lit).To(ContainSubstring("'reftime', '2020-01-01'"))
			Expect(lit).To(ContainSubstring("'outputdir', '" + filepath.Join(dir, "out") + "'"))
		})

		It("creates the model output directory", func() {
			_, _, err := runner.RunFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(dir, "out")).To(BeADirectory())
		})

		It("does not start the engine for a file missing a required key", func() {
			Expect(os.WriteFile(path, []byte("reftime: 2020-01-01\ndt: 0.1\nstorageinterval: 10\n"), 0644)).To(Succeed())

			_, rep, err := runner.RunFile(ctx, path)
			var cerr *config.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cerr))
			Expect(err.(*config.ConfigurationError).Key).To(Equal("endofsimulation"))
			Expect(rep).To(BeNil())
			Expect(bridge.Opens).To(BeZero())
		})
	})

	Describe("engine failures", func() {
		var cfg *config.SimulationConfig

		BeforeEach(func() {
			var err error
			cfg, err = config.Load(path)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports an unavailable engine without a partial result", func() {
			bridge.OpenErr = &engine.UnavailableError{Runtime: "matlab", Reason: "executable not found"}

			rep, err := runner.Run(ctx, cfg)
			var uerr *engine.UnavailableError
			Expect(err).To(BeAssignableToTypeOf(uerr))
			Expect(rep).To(BeNil())
		})

		It("carries the model diagnostic and still closes the session", func() {
			bridge.InvokeErr = &engine.SimulationError{Function: "ShorelineS", ExitCode: 3, Diagnostic: "phiw0 out of range"}

			rep, err := runner.Run(ctx, cfg)
			Expect(rep).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("phiw0 out of range")))
			Expect(bridge.Opens).To(Equal(1))
			Expect(bridge.Closes).To(Equal(1))
		})

		It("treats a partial result as a shape error", func() {
			delete(bridge.Arrays, "O.y")

			rep, err := runner.Run(ctx, cfg)
			Expect(rep).To(BeNil())
			Expect(err).To(MatchError(result.ErrShape))
			Expect(bridge.Balanced()).To(BeTrue())
		})

		It("propagates fetch failures other than a missing export", func() {
			fetchErr := errors.New("engine pipe closed")
			bridge.FetchErr = fetchErr

			rep, err := runner.Run(ctx, cfg)
			Expect(rep).To(BeNil())
			Expect(err).To(MatchError(fetchErr))
			Expect(err).NotTo(MatchError(result.ErrShape))
			Expect(bridge.Balanced()).To(BeTrue())
		})

		It("rejects output that contradicts the declared dimensions", func() {
			bridge.Arrays["O.it"] = matlab.RowVector(0, 10)
			bridge.Arrays["O.x"] = matlab.NewArray([][]float64{{0, 0}, {1, 1}})
			bridge.Arrays["O.y"] = matlab.NewArray([][]float64{{0, 0}, {1, 1}})

			_, err := runner.Run(ctx, cfg)
			Expect(err).To(MatchError(result.ErrShape))
		})
	})

	Describe("LoadResult", func() {
		var (
			cfg     *config.SimulationConfig
			matFile string
		)

		BeforeEach(func() {
			var err error
			cfg, err = config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			matFile = filepath.Join(dir, "output.mat")
			Expect(os.WriteFile(matFile, []byte("MATLAB 5.0 MAT-file"), 0644)).To(Succeed())

			bridge.Arrays = map[string]matlab.Array{}
			for name, a := range engineArrays() {
				bridge.Arrays["M."+name] = a
			}
		})

		It("tabulates a saved result without running the model", func() {
			rep, err := runner.LoadResult(ctx, cfg, matFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Table.Steps()).To(Equal(3))
			Expect(rep.Table.Points).To(Equal(2))
			Expect(rep.Table.Rows[5].Values).To(Equal([]float64{100, -1}))

			Expect(bridge.Calls).To(HaveLen(1))
			call := bridge.Calls[0]
			Expect(call.Function).To(Equal("load"))
			Expect(call.Args).To(Equal([]matlab.Value{matFile}))
			Expect(call.Outputs).To(Equal([]string{"M"}))
			Expect(call.Export).To(Equal([]string{"M.O.it", "M.O.x", "M.O.y"}))
			Expect(bridge.Balanced()).To(BeTrue())
		})

		It("matches the table a fresh run produces", func() {
			loaded, err := runner.LoadResult(ctx, cfg, matFile)
			Expect(err).NotTo(HaveOccurred())

			bridge.Arrays = engineArrays()
			ran, err := runner.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Table).To(Equal(ran.Table))
		})

		It("fails before opening the engine when the file is absent", func() {
			_, err := runner.LoadResult(ctx, cfg, filepath.Join(dir, "missing.mat"))
			Expect(err).To(MatchError(os.ErrNotExist))
			Expect(bridge.Opens).To(BeZero())
		})

		It("reports a file without the coastline fields as a shape error", func() {
			delete(bridge.Arrays, "M.O.y")

			rep, err := runner.LoadResult(ctx, cfg, matFile)
			Expect(rep).To(BeNil())
			Expect(err).To(MatchError(result.ErrShape))
		})
	})

	Describe("BuildCall", func() {
		It("exports the iteration counter and every configured field", func() {
			cfg := config.GetPreset("straight")
			cfg.Output.Fields = []string{"x", "y", "n"}

			call, err := shoreline.BuildCall(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(call.Export).To(Equal([]string{"O.it", "O.x", "O.y", "O.n"}))
			Expect(call.Paths).To(BeEmpty())
			Expect(call.Validate()).To(Succeed())
		})
	})
})
