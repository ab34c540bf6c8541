package gltfio

import (
	"slices"
	"sort"

	"github.com/qmuntal/gltf"
)

// Extensions whose payload can point at accessors or buffer views. Indices
// inside extension objects are opaque here, so nothing is pruned when one of
// them is in use.
var opaqueRefExtensions = []string{
	"EXT_mesh_gpu_instancing",
	"EXT_meshopt_compression",
	"KHR_draco_mesh_compression",
}

// prune drops the index accessors replaced by Apply once nothing references
// them, then the buffer views only they used, then the bytes of those views.
func (d *Document) prune() {
	defer clear(d.superseded)
	doc := d.Doc
	if len(d.superseded) == 0 {
		return
	}
	for _, ext := range doc.ExtensionsUsed {
		if slices.Contains(opaqueRefExtensions, ext) {
			return
		}
	}

	used := make([]bool, len(doc.Accessors))
	forEachAccessorRef(doc, func(ref *uint32) { used[*ref] = true })

	var dropViews []uint32
	accRemap := make([]uint32, len(doc.Accessors))
	kept := doc.Accessors[:0]
	for i, acr := range doc.Accessors {
		if _, ok := d.superseded[uint32(i)]; ok && !used[i] {
			if acr.BufferView != nil {
				dropViews = append(dropViews, *acr.BufferView)
			}
			continue
		}
		accRemap[i] = uint32(len(kept))
		kept = append(kept, acr)
	}
	if len(kept) == len(doc.Accessors) {
		return
	}
	clear(doc.Accessors[len(kept):])
	doc.Accessors = kept
	forEachAccessorRef(doc, func(ref *uint32) { *ref = accRemap[*ref] })

	pruneViews(doc, dropViews)
}

// forEachAccessorRef calls fn with every accessor index held by the core
// document schema.
func forEachAccessorRef(doc *gltf.Document, fn func(*uint32)) {
	for _, gm := range doc.Meshes {
		for _, p := range gm.Primitives {
			for name, acr := range p.Attributes {
				fn(&acr)
				p.Attributes[name] = acr
			}
			if p.Indices != nil {
				fn(p.Indices)
			}
			for _, target := range p.Targets {
				for name, acr := range target {
					fn(&acr)
					target[name] = acr
				}
			}
		}
	}
	for _, s := range doc.Skins {
		if s.InverseBindMatrices != nil {
			fn(s.InverseBindMatrices)
		}
	}
	for _, a := range doc.Animations {
		for _, s := range a.Samplers {
			fn(&s.Input)
			fn(&s.Output)
		}
	}
}

func forEachViewRef(doc *gltf.Document, fn func(*uint32)) {
	for _, acr := range doc.Accessors {
		if acr.BufferView != nil {
			fn(acr.BufferView)
		}
		if acr.Sparse != nil {
			fn(&acr.Sparse.Indices.BufferView)
			fn(&acr.Sparse.Values.BufferView)
		}
	}
	for _, img := range doc.Images {
		if img.BufferView != nil {
			fn(img.BufferView)
		}
	}
}

func pruneViews(doc *gltf.Document, candidates []uint32) {
	if len(candidates) == 0 {
		return
	}
	used := make([]bool, len(doc.BufferViews))
	forEachViewRef(doc, func(ref *uint32) { used[*ref] = true })

	drop := make(map[uint32]bool, len(candidates))
	for _, v := range candidates {
		if !used[v] {
			drop[v] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	shrunk := make(map[uint32]bool)
	viewRemap := make([]uint32, len(doc.BufferViews))
	kept := doc.BufferViews[:0]
	for i, bv := range doc.BufferViews {
		if drop[uint32(i)] {
			shrunk[bv.Buffer] = true
			continue
		}
		viewRemap[i] = uint32(len(kept))
		kept = append(kept, bv)
	}
	clear(doc.BufferViews[len(kept):])
	doc.BufferViews = kept
	forEachViewRef(doc, func(ref *uint32) { *ref = viewRemap[*ref] })

	for b := range shrunk {
		compactBuffer(doc, b)
	}
}

type span struct {
	start, end uint32
	views      []*gltf.BufferView
}

// compactBuffer rewrites the data of buffer b so it only holds the byte
// ranges of its remaining views. Every range keeps its offset modulo 4, so
// accessor alignment is preserved.
func compactBuffer(doc *gltf.Document, b uint32) {
	buf := doc.Buffers[b]
	if len(buf.Data) == 0 || uint32(len(buf.Data)) != buf.ByteLength {
		return
	}

	var views []*gltf.BufferView
	for _, bv := range doc.BufferViews {
		if bv.Buffer == b {
			views = append(views, bv)
		}
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].ByteOffset < views[j].ByteOffset })

	var spans []*span
	for _, bv := range views {
		end := bv.ByteOffset + bv.ByteLength
		if n := len(spans); n > 0 && bv.ByteOffset < spans[n-1].end {
			last := spans[n-1]
			last.end = max(last.end, end)
			last.views = append(last.views, bv)
			continue
		}
		spans = append(spans, &span{start: bv.ByteOffset, end: end, views: []*gltf.BufferView{bv}})
	}

	data := make([]byte, 0, len(buf.Data))
	for _, s := range spans {
		for uint32(len(data))%4 != s.start%4 {
			data = append(data, 0)
		}
		at := uint32(len(data))
		data = append(data, buf.Data[s.start:s.end]...)
		for _, bv := range s.views {
			bv.ByteOffset = at + (bv.ByteOffset - s.start)
		}
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	buf.Data = data
	buf.ByteLength = uint32(len(data))
	if buf.IsEmbeddedResource() {
		buf.EmbeddedResource()
	}
}
