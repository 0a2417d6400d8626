package math

import "testing"

func TestVec3Normalized(t *testing.T) {
	type spec struct {
		in  Vec3
		exp Vec3
	}
	specs := []spec{
		{Vec3{2, 0, 0}, Vec3{1, 0, 0}},
		{Vec3{0, -3, 0}, Vec3{0, -1, 0}},
		{Vec3{0, 0, 0.5}, Vec3{0, 0, 1}},
	}

	for index, s := range specs {
		got := s.in.Normalized()
		if !got.Compare(s.exp, K_FLOAT_EPSILON) {
			t.Fatalf("[spec %d] expected %+v; got %+v", index, s.exp, got)
		}
		length := got.Length()
		if kabs(length-1.0) > K_FLOAT_EPSILON {
			t.Fatalf("[spec %d] expected unit length; got %f", index, length)
		}
	}
}

func TestVec3Cross(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	got := x.Cross(y)
	if !got.Compare(NewVec3(0, 0, 1), K_FLOAT_EPSILON) {
		t.Fatalf("expected (0, 0, 1); got %+v", got)
	}
}

func TestVec4FromVec3(t *testing.T) {
	v := NewVec4FromVec3(NewVec3(1, 2, 3), 4)
	exp := NewVec4Create(1, 2, 3, 4)
	if !v.Compare(exp, K_FLOAT_EPSILON) {
		t.Fatalf("expected %+v; got %+v", exp, v)
	}
	back := v.ToVec3()
	if !back.Compare(NewVec3(1, 2, 3), K_FLOAT_EPSILON) {
		t.Fatalf("expected (1, 2, 3); got %+v", back)
	}
}

func TestMat4IdentityMul(t *testing.T) {
	id := NewMat4Identity()
	tr := NewMat4Translation(NewVec3(3, -2, 7))

	got := tr.Mul(id)
	for i := 0; i < 16; i++ {
		if kabs(got.Data[i]-tr.Data[i]) > K_FLOAT_EPSILON {
			t.Fatalf("element %d: expected %f; got %f", i, tr.Data[i], got.Data[i])
		}
	}
}

func TestMat4Translation(t *testing.T) {
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	if tr.Data[12] != 1 || tr.Data[13] != 2 || tr.Data[14] != 3 {
		t.Fatalf("expected translation (1, 2, 3); got (%f, %f, %f)", tr.Data[12], tr.Data[13], tr.Data[14])
	}
	if tr.Data[0] != 1 || tr.Data[5] != 1 || tr.Data[10] != 1 || tr.Data[15] != 1 {
		t.Fatalf("expected identity diagonal; got (%f, %f, %f, %f)", tr.Data[0], tr.Data[5], tr.Data[10], tr.Data[15])
	}
}

func TestMat4EulerY(t *testing.T) {
	// A quarter turn around Y maps +X onto -Z in column-major terms.
	rot := NewMat4EulerY(K_HALF_PI)
	if kabs(rot.Data[0]) > 1e-6 || kabs(rot.Data[2]+1.0) > 1e-6 {
		t.Fatalf("expected cos=0 sin=1 layout; got Data[0]=%f Data[2]=%f", rot.Data[0], rot.Data[2])
	}
}

func TestDegToRad(t *testing.T) {
	type spec struct {
		deg float32
		rad float32
	}
	specs := []spec{
		{0, 0},
		{90, K_HALF_PI},
		{180, K_PI},
		{360, K_PI_2},
	}

	for index, s := range specs {
		if got := DegToRad(s.deg); kabs(got-s.rad) > K_FLOAT_EPSILON {
			t.Fatalf("[spec %d] expected %f; got %f", index, s.rad, got)
		}
		if got := RadToDeg(s.rad); kabs(got-s.deg) > 1e-4 {
			t.Fatalf("[spec %d] expected %f; got %f", index, s.deg, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("expected 3; got %d", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Fatalf("expected 0; got %d", got)
	}
	if got := Clamp(float32(0.5), 0.0, 1.0); got != 0.5 {
		t.Fatalf("expected 0.5; got %f", got)
	}
}
