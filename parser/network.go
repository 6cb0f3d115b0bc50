package parser

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-netjoin/structs"
	. "github.com/ttpr0/go-netjoin/util"
	"golang.org/x/exp/slog"
)

//*******************************************
// network export reader
//*******************************************

// ReadNetworkCSV reads the node (N,X,Y) and link (A,B) exports of a network
// and builds one straight segment per link. The files have no header line.
func ReadNetworkCSV(nodes_file string, links_file string) ([]structs.Segment, error) {
	nodes := NewDict[int64, orb.Point](10000)
	for row, err := range ReadCSVFromFile[NodeRow](nodes_file, ',', "N", "X", "Y") {
		if err != nil {
			return nil, fmt.Errorf("read nodes: %w", err)
		}
		nodes.Set(row.N, orb.Point{row.X, row.Y})
	}
	slog.Info(fmt.Sprintf("Read %d nodes from %s", nodes.Length(), nodes_file))

	segments := NewList[structs.Segment](nodes.Length() * 2)
	row_num := 1
	for row, err := range ReadCSVFromFile[LinkRow](links_file, ',', "A", "B") {
		if err != nil {
			return nil, fmt.Errorf("read links: %w", err)
		}
		if !nodes.ContainsKey(row.A) {
			return nil, fmt.Errorf("link %d-%d: unknown node %d", row.A, row.B, row.A)
		}
		if !nodes.ContainsKey(row.B) {
			return nil, fmt.Errorf("link %d-%d: unknown node %d", row.A, row.B, row.B)
		}
		a := nodes.Get(row.A)
		b := nodes.Get(row.B)
		if row_num < 6 {
			slog.Debug(fmt.Sprintf("row %d: A = %5d (%f, %f), B = %5d (%f, %f)", row_num, row.A, a[0], a[1], row.B, b[0], b[1]))
		}
		segments.Add(structs.NewSegment(a, b, row.A, row.B))
		row_num += 1
	}
	slog.Info(fmt.Sprintf("Read %d links from %s", segments.Length(), links_file))
	return segments, nil
}
