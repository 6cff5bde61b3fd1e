package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootsreach/rootsreach-backend/api/responses"
	"github.com/rootsreach/rootsreach-backend/api/validators"
	"github.com/rootsreach/rootsreach-backend/internal/materials"
	"github.com/rootsreach/rootsreach-backend/pkg/enums"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/pagination"
)

// multipartOverhead covers the form fields sent next to the image.
const multipartOverhead = 1 << 20

type stockChangeRequest struct {
	StockChange *decimal.Decimal `json:"stockChange" validate:"required"`
}

// MaterialList serves the filtered, cursor-paged catalogue.
func MaterialList(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		params, err := parseMaterialListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MaterialCategories(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func MaterialDetail(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		material, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, material)
	}
}

// MaterialCreate accepts either a JSON body or a multipart form carrying an
// optional "image" file.
func MaterialCreate(svc materials.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			input materials.CreateInput
			image *materials.ImageUpload
		)
		if isMultipart(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+multipartOverhead)
			input, image, err = parseMaterialForm(r, maxImageBytes)
			if err == nil {
				err = validators.ValidateStruct(&input)
			}
		} else {
			err = validators.DecodeJSONBody(r, &input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.MultipartForm != nil {
			defer func() {
				_ = r.MultipartForm.RemoveAll()
			}()
		}
		if image != nil {
			if closer, ok := image.Body.(io.Closer); ok {
				defer closer.Close()
			}
		}

		created, err := svc.Create(r.Context(), actorID, input, image)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func MaterialUpdate(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body materials.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func MaterialDelete(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// MaterialAdjustStock applies a signed stock change. Negative values remove stock.
func MaterialAdjustStock(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, materialsUnavailable())
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stockChangeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.AdjustStock(r.Context(), id, *body.StockChange, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func parseMaterialListParams(r *http.Request) (materials.ListParams, error) {
	query := r.URL.Query()
	params := materials.ListParams{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}

	supplierID, err := validators.ParseQueryUUID(r, "supplierId")
	if err != nil {
		return params, err
	}
	params.SupplierID = supplierID

	lowStock, err := validators.ParseQueryDecimal(r, "lowStock")
	if err != nil {
		return params, err
	}
	params.LowStock = lowStock

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseMaterialStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		params.Status = &status
	}

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return params, err
	}
	params.Pagination = pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(query.Get("cursor")),
	}
	return params, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMaterialForm reads the create fields from a multipart form. Field
// names are accepted in snake_case and camelCase.
func parseMaterialForm(r *http.Request, maxImageBytes int64) (materials.CreateInput, *materials.ImageUpload, error) {
	var input materials.CreateInput
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return input, nil, pkgerrors.New(pkgerrors.CodeValidation, "request too large").
				WithDetails(map[string]any{"max_bytes": maxImageBytes})
		}
		return input, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	fields := map[string]string{}
	input.Name = formValue(r, "name")
	input.Description = formValue(r, "description")
	input.Category = formValue(r, "category")
	input.Unit = formValue(r, "unit")
	input.Quantity = formDecimal(r, fields, "quantity")
	input.PricePerUnit = formDecimal(r, fields, "price_per_unit", "pricePerUnit")
	input.Stock = formDecimal(r, fields, "stock")
	if status := formValue(r, "status"); status != "" {
		input.Status = &status
	}
	if raw := formValue(r, "supplier_id", "supplierId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fields["supplier_id"] = "must be a valid uuid"
		} else {
			input.SupplierID = &id
		}
	}
	if len(fields) > 0 {
		return input, nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(fields)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return input, nil, nil
		}
		return input, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image")
	}
	return input, &materials.ImageUpload{Body: file}, nil
}

func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(r.FormValue(name)); value != "" {
			return value
		}
	}
	return ""
}

func formDecimal(r *http.Request, fields map[string]string, names ...string) *decimal.Decimal {
	raw := formValue(r, names...)
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		fields[names[0]] = "must be a number"
		return nil
	}
	return &value
}

func materialsUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable")
}
