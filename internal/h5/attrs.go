package h5

/*
#cgo LDFLAGS: -lhdf5
#include <stdlib.h>
#include <string.h>
#include "hdf5.h"

static hid_t vlen_string(void) {
	hid_t t = H5Tcopy(H5T_C_S1);
	if (t < 0) {
		return t;
	}
	if (H5Tset_size(t, H5T_VARIABLE) < 0 || H5Tset_cset(t, H5T_CSET_UTF8) < 0) {
		H5Tclose(t);
		return -1;
	}
	return t;
}

static herr_t attr_write(hid_t loc, const char *obj, const char *key, const char *val) {
	htri_t exists = H5Aexists_by_name(loc, obj, key, H5P_DEFAULT);
	if (exists < 0) {
		return -1;
	}
	if (exists > 0 && H5Adelete_by_name(loc, obj, key, H5P_DEFAULT) < 0) {
		return -1;
	}

	hid_t type = vlen_string();
	if (type < 0) {
		return -1;
	}
	hid_t space = H5Screate(H5S_SCALAR);
	if (space < 0) {
		H5Tclose(type);
		return -1;
	}
	herr_t status = -1;
	hid_t attr = H5Acreate_by_name(loc, obj, key, type, space, H5P_DEFAULT, H5P_DEFAULT, H5P_DEFAULT);
	if (attr >= 0) {
		status = H5Awrite(attr, type, &val);
		H5Aclose(attr);
	}
	H5Sclose(space);
	H5Tclose(type);
	return status;
}

// attr_name returns the idx-th attribute name of obj in name order, or NULL
// past the last one. The caller frees the result.
static char *attr_name(hid_t loc, const char *obj, hsize_t idx) {
	ssize_t n = -1;
	H5E_BEGIN_TRY {
		n = H5Aget_name_by_idx(loc, obj, H5_INDEX_NAME, H5_ITER_INC, idx, NULL, 0, H5P_DEFAULT);
	} H5E_END_TRY;
	if (n < 0) {
		return NULL;
	}
	char *name = malloc(n + 1);
	if (name == NULL) {
		return NULL;
	}
	if (H5Aget_name_by_idx(loc, obj, H5_INDEX_NAME, H5_ITER_INC, idx, name, n + 1, H5P_DEFAULT) < 0) {
		free(name);
		return NULL;
	}
	return name;
}

// attr_read reads a scalar attribute. Strings come back in *str (freed by
// the caller), numbers in *num. Returns 1 for a string, 2 for a number, 0
// for any other shape or class and -1 on error.
static int attr_read(hid_t loc, const char *obj, const char *key, char **str, double *num) {
	hid_t attr = H5Aopen_by_name(loc, obj, key, H5P_DEFAULT, H5P_DEFAULT);
	if (attr < 0) {
		return -1;
	}
	int kind = 0;
	hid_t space = H5Aget_space(attr);
	hid_t ftype = H5Aget_type(attr);
	if (space < 0 || ftype < 0) {
		kind = -1;
		goto done;
	}
	if (H5Sget_simple_extent_npoints(space) != 1) {
		goto done;
	}

	switch (H5Tget_class(ftype)) {
	case H5T_STRING:
		if (H5Tis_variable_str(ftype) > 0) {
			hid_t mem = vlen_string();
			char *buf = NULL;
			if (mem < 0 || H5Aread(attr, mem, &buf) < 0) {
				kind = -1;
			} else {
				size_t n = buf == NULL ? 0 : strlen(buf);
				*str = malloc(n + 1);
				if (n > 0) {
					memcpy(*str, buf, n);
				}
				(*str)[n] = '\0';
				H5free_memory(buf);
				kind = 1;
			}
			if (mem >= 0) {
				H5Tclose(mem);
			}
		} else {
			size_t n = H5Tget_size(ftype);
			hid_t mem = H5Tcopy(H5T_C_S1);
			*str = calloc(n + 1, 1);
			if (mem < 0 || H5Tset_size(mem, n + 1) < 0 || H5Aread(attr, mem, *str) < 0) {
				free(*str);
				*str = NULL;
				kind = -1;
			} else {
				kind = 1;
			}
			if (mem >= 0) {
				H5Tclose(mem);
			}
		}
		break;
	case H5T_INTEGER:
	case H5T_FLOAT:
		kind = H5Aread(attr, H5T_NATIVE_DOUBLE, num) < 0 ? -1 : 2;
		break;
	default:
		break;
	}

done:
	if (ftype >= 0) {
		H5Tclose(ftype);
	}
	if (space >= 0) {
		H5Sclose(space);
	}
	H5Aclose(attr);
	return kind;
}
*/
import "C"

import (
	"fmt"
	"sort"
	"strconv"
	"unsafe"

	"github.com/roach88/specatalog/internal/catalogerr"
)

// The attribute and link calls below go straight to libhdf5, which
// gonum.org/v1/hdf5 already links: the binding has no calls for listing,
// replacing or removing attributes, nor for unlinking objects.

// objName maps a path to the name libhdf5 resolves relative to the file.
func objName(name string) string {
	if name = clean(name); name == "" {
		return "."
	}
	return name
}

func (f *File) loc() C.hid_t {
	return C.hid_t(f.f.ID())
}

// SetAttr stores val as a string attribute of the group or dataset at name,
// replacing any attribute of the same key. An empty name is the root group.
func (f *File) SetAttr(name, key, val string) error {
	if !f.writable {
		return fmt.Errorf("set attribute %s of %s: file %s is open read-only", key, name, f.path)
	}
	if key == "" {
		return catalogerr.Validation("", "attribute", "attribute name is empty")
	}
	if !f.Has(name) {
		return catalogerr.MissingPath(f.path + ":" + clean(name))
	}

	cobj := C.CString(objName(name))
	defer C.free(unsafe.Pointer(cobj))
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cval := C.CString(val)
	defer C.free(unsafe.Pointer(cval))

	if C.attr_write(f.loc(), cobj, ckey, cval) < 0 {
		return fmt.Errorf("set attribute %s of %s in %s: hdf5 error", key, objName(name), f.path)
	}
	return nil
}

// SetAttrs stores every entry of attrs on the object at name.
func (f *File) SetAttrs(name string, attrs map[string]string) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := f.SetAttr(name, k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

// Attrs returns the scalar attributes of the object at name. Numbers are
// rendered in their shortest form; attributes of other shapes are skipped.
func (f *File) Attrs(name string) (map[string]string, error) {
	if !f.Has(name) {
		return nil, catalogerr.MissingPath(f.path + ":" + clean(name))
	}
	cobj := C.CString(objName(name))
	defer C.free(unsafe.Pointer(cobj))

	attrs := map[string]string{}
	for idx := C.hsize_t(0); ; idx++ {
		ckey := C.attr_name(f.loc(), cobj, idx)
		if ckey == nil {
			break
		}
		key := C.GoString(ckey)

		var (
			cstr *C.char
			num  C.double
		)
		kind := C.attr_read(f.loc(), cobj, ckey, &cstr, &num)
		C.free(unsafe.Pointer(ckey))
		switch kind {
		case 1:
			attrs[key] = C.GoString(cstr)
			C.free(unsafe.Pointer(cstr))
		case 2:
			attrs[key] = strconv.FormatFloat(float64(num), 'g', -1, 64)
		case 0:
		default:
			return nil, fmt.Errorf("read attribute %s of %s in %s: hdf5 error", key, objName(name), f.path)
		}
	}
	return attrs, nil
}

// DeleteAttr removes one attribute. Fails with NotFound if it is absent.
func (f *File) DeleteAttr(name, key string) error {
	if !f.writable {
		return fmt.Errorf("delete attribute %s of %s: file %s is open read-only", key, name, f.path)
	}
	if !f.Has(name) {
		return catalogerr.MissingPath(f.path + ":" + clean(name))
	}
	cobj := C.CString(objName(name))
	defer C.free(unsafe.Pointer(cobj))
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))

	switch C.H5Aexists_by_name(f.loc(), cobj, ckey, C.H5P_DEFAULT) {
	case 0:
		return catalogerr.MissingPath(f.path + ":" + objName(name) + "@" + key)
	case 1:
	default:
		return fmt.Errorf("look up attribute %s of %s in %s: hdf5 error", key, objName(name), f.path)
	}
	if C.H5Adelete_by_name(f.loc(), cobj, ckey, C.H5P_DEFAULT) < 0 {
		return fmt.Errorf("delete attribute %s of %s in %s: hdf5 error", key, objName(name), f.path)
	}
	return nil
}

// Delete unlinks the dataset or group at name. The standard groups and
// the root stay; the file does not shrink.
func (f *File) Delete(name string) error {
	if !f.writable {
		return fmt.Errorf("delete %s: file %s is open read-only", name, f.path)
	}
	name = clean(name)
	for _, g := range append([]string{""}, Groups...) {
		if name == g {
			return catalogerr.Validation("", "dataset", "cannot delete %q", name)
		}
	}
	if !f.Has(name) {
		return catalogerr.MissingPath(f.path + ":" + name)
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if C.H5Ldelete(f.loc(), cname, C.H5P_DEFAULT) < 0 {
		return fmt.Errorf("delete %s in %s: hdf5 error", name, f.path)
	}
	return nil
}
