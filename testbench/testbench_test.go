package testbench

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/hdl"
)

func byteLanes() []Port {
	return []Port{
		{Name: "a", Direction: hdl.Input, LeftLimit: "7", RightLimit: "0"},
		{Name: "z", Direction: hdl.Output, LeftLimit: "7", RightLimit: "0"},
	}
}

// expectInOrder checks that all parts occur in text, each after the previous one.
func expectInOrder(text string, parts ...string) {
	offset := 0
	for _, p := range parts {
		i := strings.Index(text[offset:], p)
		Expect(i).To(BeNumerically(">=", 0), "%q missing after offset %d", p, offset)
		offset += i + len(p)
	}
}

func tempDir() string {
	dir, err := os.MkdirTemp("", "tbgen")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

var _ = Describe("Testbench", func() {
	var tb *Testbench

	BeforeEach(func() {
		var err error
		tb, err = New("adder", byteLanes(), Options{})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("should seed connectors from the port list", func() {
			Expect(tb.Name).To(Equal("tb_adder"))
			Expect(tb.Connectors.Names()).To(Equal([]string{"a", "z", "clock"}))

			a, err := tb.Connectors.Get("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Class).To(Equal(hdl.Reg))

			z, err := tb.Connectors.Get("z")
			Expect(err).NotTo(HaveOccurred())
			Expect(z.Class).To(Equal(hdl.Wire))

			clock, err := tb.Connectors.Get("clock")
			Expect(err).NotTo(HaveOccurred())
			Expect(clock.InitialValue).To(Equal("'b0"))
		})

		It("should reuse a clock port of the device under test", func() {
			ports := append(byteLanes(), Port{Name: "clock", Direction: hdl.Input})
			tb, err := New("adder", ports, Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tb.Connectors.Len()).To(Equal(3))
		})

		It("should reject a missing port list", func() {
			_, err := New("adder", nil, Options{})
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())

			_, err = New("", byteLanes(), Options{})
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())

			_, err = New("adder", []Port{{Name: "a", Direction: hdl.Reg}}, Options{})
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())
		})

		It("should only accept files over its own connectors", func() {
			foreign, err := exchange.NewFile(exchange.Options{Name: "a", Connectors: []*hdl.Connector{hdl.NewVector("a", hdl.Reg, 8)}})
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(tb.AddFile(foreign), hdl.ErrNotFound)).To(BeTrue())

			a, _ := tb.Connectors.Get("a")
			f, err := exchange.NewFile(exchange.Options{Name: "a", Connectors: []*hdl.Connector{a}})
			Expect(err).NotTo(HaveOccurred())
			Expect(tb.AddFile(f)).To(Succeed())
			Expect(errors.Is(tb.AddFile(f), hdl.ErrConfiguration)).To(BeTrue())

			found, err := tb.File("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(f))
			_, err = tb.File("b")
			Expect(errors.Is(err, hdl.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("sections", func() {
		It("should derive the sample period from the timescale", func() {
			params, err := tb.ParameterDefinitions()
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(Equal(strings.Join([]string{
				SectionParameters,
				"parameter real Rs = 100.0e6;",
				"parameter real Ts = 1.0/(Rs*1e-12);",
				"",
			}, "\n")))

			tb.Timescale = "10ns/1ps"
			tb.DutParameters = []Parameter{{Name: "N", Type: "integer", Value: "8"}, {Name: "M", Value: "N*2"}}
			params, err = tb.ParameterDefinitions()
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(ContainSubstring("parameter real Ts = 1.0/(Rs*1e-8);"))
			Expect(params).To(ContainSubstring("parameter integer N = 8;\nparameter M = N*2;"))
		})

		It("should reject an invalid timescale", func() {
			tb.Timescale = "3 ticks"
			_, err := tb.ParameterDefinitions()
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())
		})

		It("should declare registers before wires", func() {
			decls, err := tb.Declarations()
			Expect(err).NotTo(HaveOccurred())
			Expect(decls).To(Equal(SectionDeclarations + "\nreg [7:0] a;\nreg clock;\n\nwire [7:0] z;\n"))
		})

		It("should only assign the designated connectors", func() {
			Expect(tb.AddConnector(hdl.NewScalar("clk_a", hdl.Wire))).To(Succeed())
			Expect(tb.AddConnector(hdl.NewScalar("clk_b", hdl.Wire))).To(Succeed())
			Expect(tb.AddConnector(hdl.NewVector("z_copy", hdl.Wire, 8))).To(Succeed())
			Expect(tb.Connectors.ConnectMatching(hdl.MustPattern("clk_.*"), "clock")).To(Succeed())
			Expect(tb.Connectors.ConnectMatching(hdl.MustPattern("z_copy"), "z")).To(Succeed())

			tb.Assignable = []hdl.Matcher{hdl.MustPattern("z_.*"), hdl.MustPattern("clk_b")}
			Expect(tb.Assignments()).To(Equal(strings.Join([]string{
				SectionAssignments,
				"assign z_copy = z;",
				"assign clk_b = clock;",
				"",
			}, "\n")))
		})

		It("should instantiate the device under test and auxiliary modules", func() {
			tb.Nets["z"] = "sum"
			tb.DutParameters = []Parameter{{Name: "N", Value: "8"}}
			tb.Instances = []Instance{{
				Module:      "monitor",
				Name:        "mon",
				Parameters:  []Connection{{Port: "W", Net: "8"}},
				Connections: []Connection{{Port: "clk", Net: "clock"}, {Port: "sig", Net: "sum"}},
			}}
			Expect(tb.Instantiations()).To(Equal(strings.Join([]string{
				SectionDut,
				"adder #(.N(N)) dut (",
				"    .a(a),",
				"    .z(sum)",
				");",
				"",
				"monitor #(.W(8)) mon (",
				"    .clk(clock),",
				"    .sig(sum)",
				");",
				"",
			}, "\n")))
		})

		It("should toggle the clock every half sample period", func() {
			Expect(tb.ClockGenerator()).To(Equal(SectionClock + "\nalways #(Ts/2.0) clock = !clock;\n"))
		})

		It("should replay control files after the readiness announcement", func() {
			reset := hdl.NewScalar("reset", hdl.Reg)
			reset.InitialValue = "'b1"
			Expect(tb.AddConnector(reset)).To(Succeed())
			ctrl, err := exchange.NewFile(exchange.Options{Name: "ctrl", Kind: exchange.Control, Connectors: []*hdl.Connector{reset}})
			Expect(err).NotTo(HaveOccurred())
			Expect(tb.AddFile(ctrl)).To(Succeed())

			execution, err := tb.Execution()
			Expect(err).NotTo(HaveOccurred())
			expectInOrder(execution,
				SectionExecution,
				"initial #0 begin",
				"    fork",
				"        clock = 'b0;",
				"        reset = 'b1;",
				"        begin",
				"            initdone = 1'b0;",
				"            @(posedge clock) initdone = 1'b1;",
				`            $display("Ready to simulate");`,
				"            // Replay ctrl",
				"            ptstamp_ctrl = 0;",
				"            // Apply the last row",
				"        end",
			)
		})

		It("should declare the halves of complex inputs", func() {
			a, err := tb.Connectors.Get("a")
			Expect(err).NotTo(HaveOccurred())
			iq, err := exchange.NewFile(exchange.Options{
				Name:       "iq",
				Connectors: []*hdl.Connector{a},
				Data:       exchange.Matrix{exchange.ComplexColumn(1+2i, 3+4i)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tb.AddFile(iq)).To(Succeed())

			source, err := tb.Generate()
			Expect(err).NotTo(HaveOccurred())
			expectInOrder(source,
				SectionIO,
				"reg [7:0] aReal;",
				"reg [7:0] aImag;",
				SectionExecution,
				`status_iq = $fscanf(f_iq, "%d\t%d\n", aReal, aImag);`,
			)
		})
	})

	Describe("generation", func() {
		It("should fail without a port list", func() {
			tb.Ports = nil
			_, err := tb.Generate()
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())
		})
	})
})

var _ = Describe("Session", func() {
	var (
		mockCtrl     *gomock.Controller
		mockLauncher *MockLauncher
		dir          string
		tb           *Testbench
		input        *exchange.File
		output       *exchange.File
		session      *Session
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockLauncher = NewMockLauncher(mockCtrl)
		dir = tempDir()

		var err error
		tb, err = New("adder", byteLanes(), Options{})
		Expect(err).NotTo(HaveOccurred())

		a, _ := tb.Connectors.Get("a")
		z, _ := tb.Connectors.Get("z")
		payload, err := exchange.FromRows([][]float64{{1}, {2}, {3}, {4}})
		Expect(err).NotTo(HaveOccurred())
		input, err = exchange.NewFile(exchange.Options{Name: "a", Dir: dir, Connectors: []*hdl.Connector{a}, Data: payload})
		Expect(err).NotTo(HaveOccurred())
		output, err = exchange.NewFile(exchange.Options{Name: "z", Dir: dir, Direction: exchange.Out, Connectors: []*hdl.Connector{z}})
		Expect(err).NotTo(HaveOccurred())
		Expect(tb.AddFile(input)).To(Succeed())
		Expect(tb.AddFile(output)).To(Succeed())

		session = &Session{
			Testbench:    tb,
			Launcher:     mockLauncher,
			Dir:          dir,
			Sources:      []string{"adder.v"},
			PollAttempts: 3,
			PollInterval: time.Millisecond,
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should generate the sections in order", func() {
		source, err := tb.Generate()
		Expect(err).NotTo(HaveOccurred())

		expectInOrder(source,
			"`timescale 1ps/1ps",
			"module tb_adder;",
			SectionParameters,
			SectionDeclarations,
			"reg [7:0] a;",
			"wire [7:0] z;",
			SectionAssignments,
			SectionIO,
			"reg initdone;",
			`f_a = $fopen("`+input.Path()+`", "r");`,
			`f_z = $fopen("`+output.Path()+`", "w");`,
			SectionDut,
			"adder dut (",
			SectionClock,
			"always #(Ts/2.0) clock = !clock;",
			SectionCapture,
			"always @(posedge clock) begin",
			`$fwrite(f_z, "%d\n", z);`,
			SectionExecution,
			"fork",
			`$display("Ready to simulate");`,
			"while (!$feof(f_a)) begin",
			"@(negedge clock)",
			"if (initdone) begin",
			`status_a = $fscanf(f_a, "%d\n", a);`,
			"join",
			SectionTermination,
			"$fclose(f_a);",
			"$fclose(f_z);",
			"$finish;",
			"endmodule",
		)
	})

	It("should run a simulation and decode its outputs", func() {
		mockLauncher.EXPECT().
			Launch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, job Job) error {
				Expect(job.Top).To(Equal("tb_adder"))
				Expect(job.Sources).To(Equal([]string{"adder.v"}))
				Expect(job.Testbench).To(BeAnExistingFile())
				Expect(input.Path()).To(BeAnExistingFile())

				stimulus, err := os.ReadFile(input.Path())
				Expect(err).NotTo(HaveOccurred())
				Expect(string(stimulus)).To(Equal("1\n2\n3\n4\n"))

				return os.WriteFile(filepath.Join(job.Dir, "z.txt"), []byte("  1\n  2\n  3\n  4\n"), 0664)
			})

		results, err := session.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveKey("z"))
		Expect(results["z"]).To(Equal([][]string{{"1"}, {"2"}, {"3"}, {"4"}}))

		Expect(input.Path()).NotTo(BeAnExistingFile())
		Expect(output.Path()).NotTo(BeAnExistingFile())
		Expect(session.SourcePath()).To(BeAnExistingFile())
	})

	It("should decode outputs written with a header", func() {
		output.HasHeader = true
		mockLauncher.EXPECT().
			Launch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, job Job) error {
				source, err := os.ReadFile(job.Testbench)
				Expect(err).NotTo(HaveOccurred())
				expectInOrder(string(source),
					`f_z = $fopen("`+output.Path()+`", "w");`,
					`$fwrite(f_z, "z\n");`,
					SectionDut,
				)
				return os.WriteFile(output.Path(), []byte("z\n1\n2\n3\n4\n"), 0664)
			})

		results, err := session.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results["z"]).To(HaveLen(4))
		Expect(results["z"][0]).To(Equal([]string{"1"}))
		Expect(output.Header()).To(Equal([]string{"z"}))
	})

	It("should keep preserved files", func() {
		input.Preserve = true
		mockLauncher.EXPECT().
			Launch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, job Job) error {
				return os.WriteFile(output.Path(), []byte("0\n"), 0664)
			})

		_, err := session.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(input.Path()).To(BeAnExistingFile())
	})

	It("should time out when the simulator produces no output", func() {
		mockLauncher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(nil)

		_, err := session.Run(context.Background())
		Expect(errors.Is(err, hdl.ErrTimeout)).To(BeTrue())
		Expect(input.Path()).NotTo(BeAnExistingFile())
	})

	It("should report a failed launch", func() {
		mockLauncher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(errors.New("vvp: exit status 1"))

		_, err := session.Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("vvp: exit status 1")))
		Expect(input.Path()).NotTo(BeAnExistingFile())
	})
})
