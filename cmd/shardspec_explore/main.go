/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// shardspec_explore prints the sharding layouts reachable from a starting
// layout by one collective, on a given device mesh.
//
// Example:
//
//	$ shardspec_explore -mesh 2,2 -layout S0,R
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/shardspec/types/sharding"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagMesh = flag.String("mesh", "2,2", "Device mesh shape, as comma-separated axis dimensions. "+
		"E.g. -mesh 2,4 is a 2x4 mesh with mesh axes 0 and 1.")
	flagLayout = flag.String("layout", "", "Starting layout in S-notation, one tensor axis per comma-separated entry: "+
		"\"R\" for replicated, \"S01\" for an axis sharded by mesh axes 0 then 1. E.g. -layout S0,R for a rank-2 tensor.")
	flagOp = flag.String("op", "", "Only show transitions of this collective: all-gather, all-to-all or shard. "+
		"Empty shows all of them.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *flagLayout == "" {
		klog.Errorf("Missing starting layout. See 'shardspec_explore -help'.")
		os.Exit(1)
	}
	mesh := must.M1(parseMesh(*flagMesh))
	spec := must.M1(sharding.ParseSpec(*flagLayout))
	if err := spec.CheckValid(mesh); err != nil {
		klog.Errorf("Layout %q does not fit %s: %v", spec, mesh, err)
		os.Exit(1)
	}

	transitions := sharding.Successors(spec, mesh)
	shown := report(transitions, *flagOp)
	fmt.Printf("%s transition(s) from %q on %s (%s device(s))\n",
		humanize.Comma(int64(shown)), spec, mesh, humanize.Comma(int64(mesh.NumDevices())))
}

func parseMesh(text string) (sharding.Mesh, error) {
	parts := strings.Split(text, ",")
	dimensions := make([]int, 0, len(parts))
	for _, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || dim <= 0 {
			return sharding.Mesh{}, fmt.Errorf("invalid mesh %q: axis dimensions must be positive integers", text)
		}
		dimensions = append(dimensions, dim)
	}
	return sharding.MakeMesh(dimensions...), nil
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

func report(transitions []sharding.Transition, onlyOp string) int {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == 1:
				return headerRowStyle
			case row%2 == 0:
				return oddRowStyle
			default:
				return evenRowStyle
			}
		})
	table.Row("Collective", "Tensor Axes", "Layout", "Comm Cost")

	shown := 0
	for _, transition := range transitions {
		if onlyOp != "" && transition.Op.String() != onlyOp {
			continue
		}
		cost := "comm"
		if transition.ZeroCost {
			cost = "zero"
		}
		table.Row(transition.Op.String(), fmt.Sprint(transition.TensorAxes), transition.Result.String(), cost)
		shown++
	}
	fmt.Println(table.Render())
	return shown
}
