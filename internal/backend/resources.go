// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
)

// # Resources

// Resource is a CRUD collection of the backend, named by its URL segment.
type Resource string

const (
	Users     Resource = "users"
	Lines     Resource = "lineas"
	Brands    Resource = "marcas"
	Suppliers Resource = "proveedor"
	Products  Resource = "producto"
	Purchases Resource = "compras"
	Sales     Resource = "ventas"
	Audit     Resource = "auditoria"
)

// resourceNames maps console names to resources.
var resourceNames = map[string]Resource{
	"users":     Users,
	"lines":     Lines,
	"brands":    Brands,
	"suppliers": Suppliers,
	"products":  Products,
	"purchases": Purchases,
	"sales":     Sales,
	"audit":     Audit,
}

// ParseResource resolves a console name ("brands") or URL segment ("marcas").
func ParseResource(name string) (Resource, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if resource, ok := resourceNames[name]; ok {
		return resource, nil
	}
	for _, resource := range resourceNames {
		if string(resource) == name {
			return resource, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q (known: %s)", name, strings.Join(ResourceNames(), ", "))
}

// ResourceNames lists the console names, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(resourceNames))
	for name := range resourceNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Resource) path(id ...string) string {
	parts := append([]string{"", string(r)}, id...)
	for i := 2; i < len(parts); i++ {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

// List returns the whole collection.
func (c *Client) List(ctx context.Context, resource Resource) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodGet, path: resource.path()}, &raw)
	return raw, err
}

// Get returns one item.
func (c *Client) Get(ctx context.Context, resource Resource, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodGet, path: resource.path(id)}, &raw)
	return raw, err
}

// Create adds an item. Users are created through the owner registration endpoint.
func (c *Client) Create(ctx context.Context, resource Resource, body any) (json.RawMessage, error) {
	path := resource.path()
	if resource == Users {
		path = constants.PathRegisterOwner
	}

	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodPost, path: path, body: body}, &raw)
	return raw, err
}

// Update modifies an item. Users take POST, suppliers PATCH, everything else PUT.
func (c *Client) Update(ctx context.Context, resource Resource, id string, body any) (json.RawMessage, error) {
	method := http.MethodPut
	switch resource {
	case Users:
		method = http.MethodPost
	case Suppliers:
		method = http.MethodPatch
	}

	var raw json.RawMessage
	_, err := c.do(ctx, call{method: method, path: resource.path(id), body: body}, &raw)
	return raw, err
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, resource Resource, id string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: resource.path(id)}, nil)
	return err
}

// # Brand lines

// BrandLines lists the lines assigned to a brand.
func (c *Client) BrandLines(ctx context.Context, brandID string) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/marca/" + url.PathEscape(brandID) + "/linea"}, &raw)
	return raw, err
}

// AssignLine links a line to a brand.
func (c *Client) AssignLine(ctx context.Context, brandID, lineID string) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: brandLinePath(brandID, lineID)}, nil)
	return err
}

// UnassignLine removes a brand-line link.
func (c *Client) UnassignLine(ctx context.Context, brandID, lineID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: brandLinePath(brandID, lineID)}, nil)
	return err
}

func brandLinePath(brandID, lineID string) string {
	return "/marca/" + url.PathEscape(brandID) + "/linea/" + url.PathEscape(lineID)
}

// # Supplier products

// SupplierProduct is a product offered by a supplier under its own code.
type SupplierProduct struct {
	SupplierID   int    `json:"idProveedor"`
	ProductID    int    `json:"idProducto"`
	SupplierCode string `json:"codigoProveedor"`
}

// SupplierProducts lists the products a supplier offers.
func (c *Client) SupplierProducts(ctx context.Context, supplierID string) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/producto-proveedor/proveedor/" + url.PathEscape(supplierID)}, &raw)
	return raw, err
}

// AssignProduct records that a supplier offers a product.
func (c *Client) AssignProduct(ctx context.Context, link SupplierProduct) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/producto-proveedor", body: link}, &raw)
	return raw, err
}

// UnassignProduct removes a supplier-product link by its relation id.
func (c *Client) UnassignProduct(ctx context.Context, relationID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "/producto-proveedor/" + url.PathEscape(relationID)}, nil)
	return err
}

// # Audit

// AuditFilter narrows the audit log. Zero fields are not sent.
type AuditFilter struct {
	UserID    int
	EventType string
	// From and To are ISO dates (YYYY-MM-DD).
	From string
	To   string
}

func (f AuditFilter) values() url.Values {
	values := url.Values{}
	if f.UserID != 0 {
		values.Set("userId", strconv.Itoa(f.UserID))
	}
	if f.EventType != "" {
		values.Set("tipo_evento", f.EventType)
	}
	if f.From != "" {
		values.Set("fechaDesde", f.From)
	}
	if f.To != "" {
		values.Set("fechaHasta", f.To)
	}
	return values
}

// AuditLog lists audit records matching filter.
func (c *Client) AuditLog(ctx context.Context, filter AuditFilter) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{method: http.MethodGet, path: Audit.path(), query: filter.values()}, &raw)
	return raw, err
}

// AuditEventTypes lists the event types the audit log can be filtered by.
func (c *Client) AuditEventTypes(ctx context.Context) ([]string, error) {
	var types []string
	_, err := c.do(ctx, call{method: http.MethodGet, path: Audit.path("enum")}, &types)
	return types, err
}
