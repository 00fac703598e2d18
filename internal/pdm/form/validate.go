// Package form validates and submits the assembly/part create and edit forms.
package form

import (
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// Attachment 表单附件，提交后无论成功与否都会被关闭
type Attachment struct {
	FileName string
	Body     io.ReadCloser
}

// Close releases the attachment body. It is safe to call more than once.
func (a *Attachment) Close() error {
	if a == nil || a.Body == nil {
		return nil
	}
	err := a.Body.Close()
	a.Body = nil
	return err
}

// Format returns the lower-cased file extension without the dot.
func (a *Attachment) Format() string {
	if a == nil {
		return ""
	}
	return fileFormat(a.FileName)
}

func fileFormat(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Input 表单原始输入
type Input struct {
	Kind tree.Kind
	// ID 为 0 表示新建
	ID               uint
	Name             string
	PartNumber       string
	Quantity         string
	ProjectID        *uint
	AssemblyID       *uint
	ParentAssemblyID string
	PDFContentType   string
	UploadedBy       string
	ChangeNote       string
	File2D           *Attachment
	File3D           *Attachment
}

// Close releases both attachments.
func (in *Input) Close() {
	_ = in.File2D.Close()
	_ = in.File3D.Close()
}

// Payload 校验并规范化后的表单
type Payload struct {
	Kind             tree.Kind   `json:"type" validate:"required,oneof=assembly part"`
	ID               uint        `json:"id"`
	Name             string      `json:"name" validate:"required,max=256"`
	PartNumber       string      `json:"part_number" validate:"max=128"`
	Quantity         int         `json:"quantity" validate:"gte=1"`
	ProjectID        *uint       `json:"project_id"`
	AssemblyID       *uint       `json:"assembly_id"`
	ParentAssemblyID *uint       `json:"parent_assembly_id"`
	PDFContentType   string      `json:"pdf_content_type" validate:"omitempty,oneof=normal scanned"`
	File2DName       string      `json:"file_2d" validate:"omitempty,pdf_file"`
	File3DName       string      `json:"file_3d" validate:"omitempty,step_file"`
	File2D           *Attachment `json:"-" validate:"-"`
	File3D           *Attachment `json:"-" validate:"-"`
	UploadedBy       string      `json:"uploaded_by"`
	ChangeNote       string      `json:"change_note"`
}

// IsCreate reports whether the payload creates a new entity.
func (p Payload) IsCreate() bool {
	return p.ID == 0
}

// IsMemberPart reports whether the payload is a part inside an assembly.
func (p Payload) IsMemberPart() bool {
	return p.Kind == tree.KindPart && p.AssemblyID != nil
}

// Assembly converts the payload to an assembly entity.
func (p Payload) Assembly() entity.Assembly {
	a := entity.Assembly{ID: p.ID, Name: p.Name, ParentAssemblyID: p.ParentAssemblyID}
	if p.ProjectID != nil {
		a.ProjectID = *p.ProjectID
	}
	return a
}

// Part converts the payload to a part entity.
func (p Payload) Part() entity.Part {
	return entity.Part{
		ID:         p.ID,
		Name:       p.Name,
		PartNumber: p.PartNumber,
		Quantity:   p.Quantity,
		ProjectID:  p.ProjectID,
		AssemblyID: p.AssemblyID,
	}
}

// ValidationErrors 字段 -> 错误信息
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("pdf_file", extensionRule("pdf"))
	_ = validate.RegisterValidation("step_file", extensionRule("step", "stp"))
	validate.RegisterStructValidation(payloadRules, Payload{})
}

func extensionRule(exts ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		format := fileFormat(fl.Field().String())
		for _, ext := range exts {
			if format == ext {
				return true
			}
		}
		return false
	}
}

// payloadRules 归属与附件规则
func payloadRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(Payload)

	switch {
	case p.IsMemberPart():
		if p.ProjectID != nil {
			sl.ReportError(p.ProjectID, "project_id", "ProjectID", "member_no_project", "")
		}
	default:
		if p.ProjectID == nil || *p.ProjectID == 0 {
			sl.ReportError(p.ProjectID, "project_id", "ProjectID", "required", "")
		}
	}

	if p.Kind == tree.KindAssembly && p.ParentAssemblyID != nil && p.ID != 0 && *p.ParentAssemblyID == p.ID {
		sl.ReportError(p.ParentAssemblyID, "parent_assembly_id", "ParentAssemblyID", "self_parent", "")
	}

	if p.File2D != nil && p.File2DName == "" {
		sl.ReportError(p.File2DName, "file_2d", "File2DName", "pdf_file", "")
	}
	if p.File3D != nil && p.File3DName == "" {
		sl.ReportError(p.File3DName, "file_3d", "File3DName", "step_file", "")
	}

	if p.Kind == tree.KindPart {
		if p.File2D == nil {
			sl.ReportError(p.File2D, "file_2d", "File2D", "required", "")
		}
		if p.File3D == nil {
			sl.ReportError(p.File3D, "file_3d", "File3D", "required", "")
		}
	}
}

var messages = map[string]string{
	"required":          "不能为空",
	"max":               "长度超出限制",
	"gte":               "必须大于等于1",
	"oneof":             "取值无效",
	"pdf_file":          "2D文档必须为PDF文件",
	"step_file":         "3D文档必须为STEP/STP文件",
	"member_no_project": "装配体内零件不能直接关联项目",
	"self_parent":       "父装配体不能是自身",
}

// Validate 校验并规范化表单输入，失败时返回 ValidationErrors，不发起任何网络请求
func Validate(in Input) (Payload, error) {
	errs := ValidationErrors{}

	p := Payload{
		Kind:           in.Kind,
		ID:             in.ID,
		Name:           strings.TrimSpace(in.Name),
		PartNumber:     strings.TrimSpace(in.PartNumber),
		Quantity:       1,
		ProjectID:      in.ProjectID,
		PDFContentType: strings.TrimSpace(in.PDFContentType),
		File2D:         in.File2D,
		File3D:         in.File3D,
		File2DName:     fileName(in.File2D),
		File3DName:     fileName(in.File3D),
		UploadedBy:     strings.TrimSpace(in.UploadedBy),
		ChangeNote:     strings.TrimSpace(in.ChangeNote),
	}

	switch in.Kind {
	case tree.KindPart:
		p.Quantity = ParseQuantity(in.Quantity)
		p.AssemblyID = in.AssemblyID
	case tree.KindAssembly:
		if raw := strings.TrimSpace(in.ParentAssemblyID); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 0)
			if err != nil || id == 0 {
				errs["parent_assembly_id"] = "必须为有效的装配体ID"
			} else {
				parent := uint(id)
				p.ParentAssemblyID = &parent
			}
		}
	}
	if p.File2D != nil && p.PDFContentType == "" {
		p.PDFContentType = entity.PDFContentNormal
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Payload{}, err
		}
		for _, fe := range verrs {
			if _, exists := errs[fe.Field()]; exists {
				continue
			}
			msg, ok := messages[fe.Tag()]
			if !ok {
				msg = "校验失败: " + fe.Tag()
			}
			errs[fe.Field()] = msg
		}
	}
	if len(errs) > 0 {
		return Payload{}, errs
	}
	return p, nil
}

func fileName(a *Attachment) string {
	if a == nil {
		return ""
	}
	return a.FileName
}

// ParseQuantity parses a quantity field; empty, invalid or non-positive
// input becomes 1.
func ParseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
