package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/ttpr0/go-netjoin/structs"
	. "github.com/ttpr0/go-netjoin/util"
	"golang.org/x/exp/slog"
)

// ReadNetworkOSM builds segments from the ways of an OSM file (.pbf or .osm)
// accepted by the filter. Every pair of consecutive way nodes becomes one
// segment carrying the two OSM node ids.
func ReadNetworkOSM(ctx context.Context, osm_file string, filter ILinkFilter) ([]structs.Segment, error) {
	if filter == nil {
		filter = &HighwayFilter{}
	}
	links := NewList[OSMLink](10000)
	osm_nodes := NewDict[int64, TempNode](10000)

	file, err := os.Open(osm_file)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pbf := _IsPBF(osm_file)
	scanner := _NewScanner(ctx, file, pbf, false)
	_WayHandler(scanner, filter, &links, &osm_nodes)
	err = scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("scan ways of %s: %w", osm_file, err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}
	scanner = _NewScanner(ctx, file, pbf, true)
	_NodeHandler(scanner, &osm_nodes)
	err = scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("scan nodes of %s: %w", osm_file, err)
	}

	segments := NewList[structs.Segment](links.Length())
	missing := 0
	for _, link := range links {
		node_a := osm_nodes.Get(link.NodeA)
		node_b := osm_nodes.Get(link.NodeB)
		if !node_a.Found || !node_b.Found {
			missing += 1
			continue
		}
		segments.Add(structs.NewSegment(node_a.Point, node_b.Point, link.NodeA, link.NodeB))
	}
	if missing > 0 {
		slog.Warn(fmt.Sprintf("Skipped %d links referencing nodes missing from %s", missing, osm_file))
	}
	slog.Info(fmt.Sprintf("Read %d links from %s", segments.Length(), osm_file))
	return segments, nil
}

func _IsPBF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pbf")
}

func _NewScanner(ctx context.Context, file *os.File, pbf bool, nodes bool) osm.Scanner {
	if !pbf {
		return osmxml.New(ctx, file)
	}
	scanner := osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1))
	scanner.SkipNodes = !nodes
	scanner.SkipWays = nodes
	scanner.SkipRelations = true
	return scanner
}

//*******************************************
// osm handler methods
//*******************************************

func _WayHandler(scanner osm.Scanner, filter ILinkFilter, links *List[OSMLink], osm_nodes *Dict[int64, TempNode]) {
	c := 0
	for scanner.Scan() {
		switch object := scanner.Object().(type) {
		case *osm.Way:
			tags := Dict[string, string](object.TagMap())
			if !filter.IsValidLink(tags) {
				continue
			}
			c += 1
			if c%1000 == 0 {
				slog.Debug(fmt.Sprintf("%v", c))
			}
			nodes := object.Nodes.NodeIDs()
			for i := 0; i < len(nodes); i++ {
				(*osm_nodes)[int64(nodes[i])] = TempNode{}
				if i == 0 || nodes[i-1] == nodes[i] {
					continue
				}
				links.Add(OSMLink{NodeA: int64(nodes[i-1]), NodeB: int64(nodes[i])})
			}
		default:
			continue
		}
	}
}

func _NodeHandler(scanner osm.Scanner, osm_nodes *Dict[int64, TempNode]) {
	c := 0
	for scanner.Scan() {
		switch object := scanner.Object().(type) {
		case *osm.Node:
			id := int64(object.ID)
			if !osm_nodes.ContainsKey(id) {
				continue
			}
			c += 1
			if c%1000 == 0 {
				slog.Debug(fmt.Sprintf("%v", c))
			}
			osm_nodes.Set(id, TempNode{Point: object.Point(), Found: true})
		default:
			continue
		}
	}
}
