// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"net/http"
	"strconv"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	requestutil "github.com/taibuivan/storeconsole/internal/platform/request"
	"github.com/taibuivan/storeconsole/internal/platform/respond"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
	"github.com/taibuivan/storeconsole/internal/platform/validate"
)

// registration is the body of both registration endpoints.
type registration struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	Address   string       `json:"address"`
	Phone     string       `json:"phone"`
	Role      sec.UserRole `json:"role"`
}

func (input registration) validate() error {
	validator := &validate.Validator{}
	validator.
		Required("firstName", input.FirstName).MaxLen("firstName", input.FirstName, 100).
		Required("lastName", input.LastName).MaxLen("lastName", input.LastName, 100).
		Required("email", input.Email).Email("email", input.Email).
		Password("password", input.Password, validate.PasswordContext{
			Email: input.Email, FirstName: input.FirstName, LastName: input.LastName,
		}).
		OneOf("role", string(input.Role), string(sec.RoleOwner), string(sec.RoleEmployee))
	return validator.Err()
}

// register validates and stores a new account.
func (api *API) register(writer http.ResponseWriter, request *http.Request, input registration) {
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	hash, err := api.hashPassword(input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := api.accounts.create(account{
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Address:      input.Address,
		Phone:        input.Phone,
		Role:         input.Role,
		PasswordHash: hash,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	api.recordChange(request, EventCreate, "usuario", strconv.Itoa(created.ID))
	respond.Created(writer, created.view())
}

// registerEmployee handles POST /users/register. The role is always employee.
func (api *API) registerEmployee(writer http.ResponseWriter, request *http.Request) {
	var input registration
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.Role = sec.RoleEmployee
	api.register(writer, request, input)
}

// registerUser handles POST /users/register-owner, which accepts any role.
func (api *API) registerUser(writer http.ResponseWriter, request *http.Request) {
	var input registration
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Role == "" {
		input.Role = sec.RoleEmployee
	}
	api.register(writer, request, input)
}

func (api *API) listUsers(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, api.accounts.list())
}

func (api *API) getUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id", "User")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, ok := api.accounts.find(id)
	if !ok {
		respond.Error(writer, request, apperr.NotFound("User"))
		return
	}
	respond.OK(writer, found.view())
}

// updateUser handles POST /users/{id}. Only the fields present are changed.
func (api *API) updateUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id", "User")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		FirstName *string       `json:"firstName"`
		LastName  *string       `json:"lastName"`
		Email     *string       `json:"email"`
		Address   *string       `json:"address"`
		Phone     *string       `json:"phone"`
		Role      *sec.UserRole `json:"role"`
	}
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := api.accounts.update(id, func(target *account) error {
		validator := &validate.Validator{}
		if input.FirstName != nil {
			validator.Required("firstName", *input.FirstName)
			target.FirstName = *input.FirstName
		}
		if input.LastName != nil {
			validator.Required("lastName", *input.LastName)
			target.LastName = *input.LastName
		}
		if input.Email != nil {
			validator.Required("email", *input.Email).Email("email", *input.Email)
			target.Email = *input.Email
		}
		if input.Address != nil {
			target.Address = *input.Address
		}
		if input.Phone != nil {
			target.Phone = *input.Phone
		}
		if input.Role != nil {
			validator.OneOf("role", string(*input.Role), string(sec.RoleOwner), string(sec.RoleEmployee))
			target.Role = *input.Role
		}
		return validator.Err()
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	api.recordChange(request, EventUpdate, "usuario", strconv.Itoa(id))
	respond.OK(writer, updated.view())
}

// deleteUser handles DELETE /users/{id}. Owners cannot delete themselves.
func (api *API) deleteUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id", "User")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	self, err := api.caller(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if self.ID == id {
		respond.Error(writer, request, apperr.Conflict("You cannot delete your own account"))
		return
	}

	if !api.accounts.remove(id) {
		respond.Error(writer, request, apperr.NotFound("User"))
		return
	}
	api.revokeGrants(id)

	api.recordChange(request, EventDelete, "usuario", strconv.Itoa(id))
	respond.NoContent(writer)
}
