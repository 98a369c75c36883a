package testbench

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/hdl"
)

const adderDescription = `
requires: v1.0.0
dut: adder
rate: "50.0e6"
sources: [adder.v, /opt/lib/cells.v]
defines: {WIDTH: "8", FAST: ""}
parameters:
  - {name: N, type: integer, value: "8"}
ports:
  - {name: clk, direction: input}
  - {name: a, direction: input, left: N-1, right: "0"}
  - {name: z, direction: output, left: N-1, right: "0", signed: true}
nets:
  clk: clock
signals:
  - {name: reset, class: reg, initial: "'b1"}
  - {name: clk_mon, class: wire}
connect:
  - {pattern: "clk_.*", target: clock}
init:
  - {pattern: a, value: "'b0"}
assign: ["clk_.*"]
instances:
  - module: monitor
    name: mon
    connections: {sig: z, clk: clk_mon}
files:
  - {name: stim, signals: [a], data: [[1], [2], [3]]}
  - {name: ctrl, kind: control, signals: [reset], data: [[0, 1], [50, 0]]}
  - {name: resp, direction: out, signals: [z], condition: "!reset"}
`

var _ = Describe("Description", func() {
	It("should build a testbench", func() {
		desc, err := ParseDescription([]byte(adderDescription))
		Expect(err).NotTo(HaveOccurred())
		Expect(desc.String()).To(Equal("adder (3 ports, 3 files)"))
		Expect(desc.Defines).To(HaveKeyWithValue("WIDTH", "8"))

		dir := tempDir()
		tb, err := desc.Build(dir, Options{Timescale: "1ns/1ps"})
		Expect(err).NotTo(HaveOccurred())
		Expect(tb.Name).To(Equal("tb_adder"))
		Expect(tb.Rate).To(Equal("50.0e6"))
		Expect(tb.Timescale).To(Equal("1ns/1ps"))
		Expect(tb.Files).To(HaveLen(3))
		Expect(tb.FilesOf(exchange.Out)).To(HaveLen(1))

		ctrl, err := tb.File("ctrl")
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Kind).To(Equal(exchange.Control))
		Expect(ctrl.Path()).To(Equal(filepath.Join(dir, "ctrl.txt")))

		source, err := tb.Generate()
		Expect(err).NotTo(HaveOccurred())
		expectInOrder(source,
			"parameter real Ts = 1.0/(Rs*1e-9);",
			"parameter integer N = 8;",
			"reg clk;",
			"reg [N-1:0] a;",
			"reg clock;",
			"reg reset;",
			"wire signed [N-1:0] z;",
			"wire clk_mon;",
			"assign clk_mon = clock;",
			"adder #(.N(N)) dut (",
			"    .clk(clock),",
			"monitor mon (",
			"    .clk(clk_mon),",
			"    .sig(z)",
			"if (!reset) begin",
			"a = 'b0;",
			"clock = 'b0;",
			"reset = 'b1;",
			`$display("Ready to simulate");`,
			"// Replay stim",
			"// Replay ctrl",
		)
	})

	It("should resolve sources relative to the description", func() {
		dir := tempDir()
		path := filepath.Join(dir, "adder.yaml")
		Expect(os.WriteFile(path, []byte(adderDescription), 0664)).To(Succeed())

		desc, err := LoadDescription(path)
		Expect(err).NotTo(HaveOccurred())
		sources, err := desc.SourcePaths()
		Expect(err).NotTo(HaveOccurred())
		Expect(sources).To(Equal([]string{filepath.Join(dir, "adder.v"), "/opt/lib/cells.v"}))
	})

	It("should report a missing description", func() {
		_, err := LoadDescription(filepath.Join(tempDir(), "missing.yaml"))
		Expect(errors.Is(err, hdl.ErrMissingFile)).To(BeTrue())
	})

	DescribeTable("invalid descriptions",
		func(doc string) {
			_, err := ParseDescription([]byte(doc))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, hdl.ErrConfiguration)).To(BeTrue())
		},
		Entry("no ports", "dut: adder\n"),
		Entry("unknown direction", "dut: adder\nports: [{name: a, direction: sideways}]\n"),
		Entry("invalid identifier", "dut: 2adder\nports: [{name: a, direction: input}]\n"),
		Entry("unknown field", "dut: adder\nports: [{name: a, direction: input}]\nclocks: 2\n"),
		Entry("file without signals", "dut: adder\nports: [{name: a, direction: input}]\nfiles: [{name: f, signals: []}]\n"),
		Entry("newer tool required", "requires: v99.0.0\ndut: adder\nports: [{name: a, direction: input}]\n"),
		Entry("invalid timescale", "dut: adder\ntimescale: 3ticks\nports: [{name: a, direction: input}]\n"),
	)

	DescribeTable("invalid testbenches",
		func(doc string, kind error) {
			desc, err := ParseDescription([]byte(doc))
			Expect(err).NotTo(HaveOccurred())
			_, err = desc.Build(tempDir(), Options{})
			Expect(errors.Is(err, kind)).To(BeTrue(), "%v", err)
		},
		Entry("unknown file signal", "dut: adder\nports: [{name: a, direction: input}]\nfiles: [{name: f, signals: [b]}]\n", hdl.ErrNotFound),
		Entry("unknown connect target", "dut: adder\nports: [{name: a, direction: input}]\nconnect: [{target: b}]\n", hdl.ErrNotFound),
		Entry("data on an output", "dut: adder\nports: [{name: a, direction: output}]\nfiles: [{name: f, direction: out, signals: [a], data: [[1]]}]\n", hdl.ErrConfiguration),
		Entry("payload mismatch", "dut: adder\nports: [{name: a, direction: input}]\nfiles: [{name: f, signals: [a], data: [[1, 2]]}]\n", hdl.ErrInvalidPayload),
		Entry("duplicate signal", "dut: adder\nports: [{name: a, direction: input}]\nsignals: [{name: a, class: wire}]\n", hdl.ErrConfiguration),
		Entry("control output", "dut: adder\nports: [{name: a, direction: output}]\nfiles: [{name: f, direction: out, kind: control, signals: [a]}]\n", hdl.ErrUnsupportedOperation),
	)
})
