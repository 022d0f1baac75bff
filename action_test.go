package archecs

import "testing"

func TestActionBufferExecuteRunsInOrder(t *testing.T) {
	buf := NewActionBuffer()
	var order []int
	buf.Push(func(*World) { order = append(order, 1) })
	buf.Push(func(*World) { order = append(order, 2) })
	buf.Execute(nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected execution order: %v", order)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer to be empty after Execute")
	}
}

func TestActionEncoderSpawnDeferred(t *testing.T) {
	w := NewWorld(WorldOptions{})
	buf := NewActionBuffer()
	enc := NewActionEncoder(buf)

	id := enc.Spawn(w, Bundle1[testPosition]{A: testPosition{X: 9}})
	if !w.IsAlive(id) {
		t.Fatalf("expected id to be alive (reserved) immediately")
	}
	if _, ok := Get[testPosition](w, id); ok {
		t.Fatalf("expected the component not to exist until the action executes")
	}

	buf.Execute(w)
	pos, ok := Get[testPosition](w, id)
	if !ok || pos.X != 9 {
		t.Fatalf("expected the component to exist after Execute, got %+v ok=%v", pos, ok)
	}
}

func TestActionBufferExecuteRunsActionsPushedDuringExecution(t *testing.T) {
	buf := NewActionBuffer()
	var order []int
	buf.Push(func(*World) {
		order = append(order, 1)
		buf.Push(func(*World) {
			order = append(order, 2)
			buf.Push(func(*World) { order = append(order, 3) })
		})
	})

	buf.Execute(nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected nested pushes to run within the same Execute pass, got %v", order)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer to be empty after Execute")
	}
}

func TestActionChannelDrain(t *testing.T) {
	ch := NewActionChannel(4)
	sender := ch.Sender()
	var ran []int
	sender.Send(func(*World) { ran = append(ran, 1) })
	sender.Send(func(*World) { ran = append(ran, 2) })

	ch.Execute(nil)
	if len(ran) != 2 {
		t.Fatalf("expected 2 actions to run, got %d", len(ran))
	}
	if len(ch.Drain()) != 0 {
		t.Fatalf("expected channel to be empty after Execute")
	}
}

func TestActionEncoderClosureAndResourceHelpers(t *testing.T) {
	w := NewWorld(WorldOptions{})
	buf := NewActionBuffer()
	enc := NewActionEncoder(buf)

	ran := false
	enc.Closure(func(*World) { ran = true })
	EncoderInsertResource(enc, testCounter{N: 3})
	buf.Execute(w)

	if !ran {
		t.Fatalf("expected the closure action to run")
	}
	c, ok := GetResource[testCounter](w)
	if !ok || c.N != 3 {
		t.Fatalf("expected EncoderInsertResource to install the resource, got %+v ok=%v", c, ok)
	}

	EncoderDropResource[testCounter](enc)
	buf.Execute(w)
	if HasResource[testCounter](w) {
		t.Fatalf("expected EncoderDropResource to remove the resource")
	}
}

func TestActionEncoderRelationHelpers(t *testing.T) {
	w := NewWorld(WorldOptions{})
	buf := NewActionBuffer()
	enc := NewActionEncoder(buf)
	child := SpawnEmpty(w)
	parent := SpawnEmpty(w)

	EncoderInsertRelation(enc, child, ChildOf{}, parent)
	buf.Execute(w)
	if target, ok := RelationTarget[ChildOf](w, child); !ok || target != parent {
		t.Fatalf("expected EncoderInsertRelation to record the relation, got %v ok=%v", target, ok)
	}

	EncoderDropRelation[ChildOf](enc, child)
	buf.Execute(w)
	if _, ok := RelationTarget[ChildOf](w, child); ok {
		t.Fatalf("expected EncoderDropRelation to remove the relation")
	}
}
