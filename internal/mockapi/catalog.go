// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	requestutil "github.com/taibuivan/storeconsole/internal/platform/request"
	"github.com/taibuivan/storeconsole/internal/platform/respond"
	"github.com/taibuivan/storeconsole/internal/platform/validate"
)

// Catalogue collections by URL segment.
var (
	catalogResources = []string{"lineas", "marcas", "proveedor", "producto", "compras", "ventas"}
	sharedResources  = []string{"compras", "ventas"}
	ownerResources   = []string{"lineas", "marcas", "proveedor", "producto"}
)

// item is a schemaless catalogue record. The "id" field is owned by the collection.
type item map[string]any

// collection is a thread-safe id-keyed set of items.
type collection struct {
	name   string
	mu     sync.RWMutex
	nextID int
	items  map[int]item
}

func newCollection(name string) *collection {
	return &collection{name: name, items: make(map[int]item)}
}

func (c *collection) create(fields item) item {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	stored := clone(fields)
	stored["id"] = c.nextID
	c.items[c.nextID] = stored
	return clone(stored)
}

func (c *collection) get(id int) (item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return clone(found), true
}

// update merges fields into the item.
func (c *collection) update(id int, fields item) (item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, ok := c.items[id]
	if !ok {
		return nil, false
	}
	for key, value := range fields {
		if key == "id" {
			continue
		}
		found[key] = value
	}
	return clone(found), true
}

func (c *collection) remove(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

// list returns the items accepted by keep, ordered by id.
func (c *collection) list(keep func(item) bool) []item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]item, 0, len(ids))
	for _, id := range ids {
		if keep == nil || keep(c.items[id]) {
			out = append(out, clone(c.items[id]))
		}
	}
	return out
}

func clone(source item) item {
	copied := make(item, len(source))
	for key, value := range source {
		copied[key] = value
	}
	return copied
}

// collectionRoutes exposes c as a REST resource.
func (api *API) collectionRoutes(c *collection) http.Handler {
	r := chi.NewRouter()
	resource := c.name

	r.Get("/", func(writer http.ResponseWriter, request *http.Request) {
		respond.OK(writer, c.list(nil))
	})

	r.Get("/{id}", func(writer http.ResponseWriter, request *http.Request) {
		id, err := requestutil.IntParam(request, "id", resource)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		found, ok := c.get(id)
		if !ok {
			respond.Error(writer, request, apperr.NotFound(resource))
			return
		}
		respond.OK(writer, found)
	})

	r.Post("/", func(writer http.ResponseWriter, request *http.Request) {
		var fields item
		if err := requestutil.DecodeJSON(writer, request, &fields); err != nil {
			respond.Error(writer, request, err)
			return
		}
		if len(fields) == 0 {
			respond.Error(writer, request, validate.RequiredError("body", "At least one field is required"))
			return
		}
		created := c.create(fields)
		api.recordChange(request, EventCreate, resource, strconv.Itoa(created["id"].(int)))
		respond.Created(writer, created)
	})

	update := func(writer http.ResponseWriter, request *http.Request) {
		id, err := requestutil.IntParam(request, "id", resource)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		var fields item
		if err := requestutil.DecodeJSON(writer, request, &fields); err != nil {
			respond.Error(writer, request, err)
			return
		}
		updated, ok := c.update(id, fields)
		if !ok {
			respond.Error(writer, request, apperr.NotFound(resource))
			return
		}
		api.recordChange(request, EventUpdate, resource, strconv.Itoa(id))
		respond.OK(writer, updated)
	}
	r.Put("/{id}", update)
	r.Patch("/{id}", update)

	r.Delete("/{id}", func(writer http.ResponseWriter, request *http.Request) {
		id, err := requestutil.IntParam(request, "id", resource)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		if !c.remove(id) {
			respond.Error(writer, request, apperr.NotFound(resource))
			return
		}
		api.recordChange(request, EventDelete, resource, strconv.Itoa(id))
		respond.NoContent(writer)
	})

	return r
}

// # Brand lines

// linkSet is a many-to-many relation between integer ids.
type linkSet struct {
	mu    sync.RWMutex
	links map[int]map[int]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{links: make(map[int]map[int]struct{})}
}

func (s *linkSet) add(left, right int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rights, ok := s.links[left]
	if !ok {
		rights = make(map[int]struct{})
		s.links[left] = rights
	}
	if _, exists := rights[right]; exists {
		return false
	}
	rights[right] = struct{}{}
	return true
}

func (s *linkSet) remove(left, right int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[left][right]; !ok {
		return false
	}
	delete(s.links[left], right)
	return true
}

func (s *linkSet) of(left int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rights := make([]int, 0, len(s.links[left]))
	for right := range s.links[left] {
		rights = append(rights, right)
	}
	sort.Ints(rights)
	return rights
}

// brandAndLine resolves the {id} and {lineId} parameters against the catalogue.
func (api *API) brandAndLine(request *http.Request) (int, int, error) {
	brandID, err := requestutil.IntParam(request, "id", "marca")
	if err != nil {
		return 0, 0, err
	}
	if _, ok := api.catalog["marcas"].get(brandID); !ok {
		return 0, 0, apperr.NotFound("marca")
	}
	lineID, err := requestutil.IntParam(request, "lineId", "linea")
	if err != nil {
		return 0, 0, err
	}
	if _, ok := api.catalog["lineas"].get(lineID); !ok {
		return 0, 0, apperr.NotFound("linea")
	}
	return brandID, lineID, nil
}

func (api *API) listBrandLines(writer http.ResponseWriter, request *http.Request) {
	brandID, err := requestutil.IntParam(request, "id", "marca")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if _, ok := api.catalog["marcas"].get(brandID); !ok {
		respond.Error(writer, request, apperr.NotFound("marca"))
		return
	}

	lines := make([]item, 0)
	for _, lineID := range api.brandLines.of(brandID) {
		if line, ok := api.catalog["lineas"].get(lineID); ok {
			lines = append(lines, line)
		}
	}
	respond.OK(writer, lines)
}

func (api *API) assignBrandLine(writer http.ResponseWriter, request *http.Request) {
	brandID, lineID, err := api.brandAndLine(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if !api.brandLines.add(brandID, lineID) {
		respond.Error(writer, request, apperr.Conflict("Line is already assigned to this brand"))
		return
	}
	api.recordChange(request, EventCreate, "marca_linea", strconv.Itoa(brandID)+":"+strconv.Itoa(lineID))
	respond.Created(writer, map[string]int{"idMarca": brandID, "idLinea": lineID})
}

func (api *API) unassignBrandLine(writer http.ResponseWriter, request *http.Request) {
	brandID, lineID, err := api.brandAndLine(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if !api.brandLines.remove(brandID, lineID) {
		respond.Error(writer, request, apperr.NotFound("marca_linea"))
		return
	}
	api.recordChange(request, EventDelete, "marca_linea", strconv.Itoa(brandID)+":"+strconv.Itoa(lineID))
	respond.NoContent(writer)
}

// # Supplier products

func (api *API) listSupplierProducts(writer http.ResponseWriter, request *http.Request) {
	supplierID, err := requestutil.IntParam(request, "id", "proveedor")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, api.supplierProducts.list(func(link item) bool {
		return link["idProveedor"] == supplierID
	}))
}

func (api *API) assignSupplierProduct(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		SupplierID   int    `json:"idProveedor"`
		ProductID    int    `json:"idProducto"`
		SupplierCode string `json:"codigoProveedor"`
	}
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	_, supplierKnown := api.catalog["proveedor"].get(input.SupplierID)
	_, productKnown := api.catalog["producto"].get(input.ProductID)
	validator.
		Custom("idProveedor", !supplierKnown, "Unknown supplier").
		Custom("idProducto", !productKnown, "Unknown product").
		Required("codigoProveedor", input.SupplierCode)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	duplicate := api.supplierProducts.list(func(link item) bool {
		return link["idProveedor"] == input.SupplierID && link["idProducto"] == input.ProductID
	})
	if len(duplicate) > 0 {
		respond.Error(writer, request, apperr.Conflict("Supplier already offers this product"))
		return
	}

	created := api.supplierProducts.create(item{
		"idProveedor":     input.SupplierID,
		"idProducto":      input.ProductID,
		"codigoProveedor": input.SupplierCode,
	})
	api.recordChange(request, EventCreate, "producto_proveedor", strconv.Itoa(created["id"].(int)))
	respond.Created(writer, created)
}

func (api *API) unassignSupplierProduct(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id", "producto_proveedor")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if !api.supplierProducts.remove(id) {
		respond.Error(writer, request, apperr.NotFound("producto_proveedor"))
		return
	}
	api.recordChange(request, EventDelete, "producto_proveedor", strconv.Itoa(id))
	respond.NoContent(writer)
}
