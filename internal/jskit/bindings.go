package jskit

import (
	"github.com/dop251/goja"
)

// newPebbleObject builds the script-facing Pebble object for h. Callback
// arguments that are not functions are ignored.
func (h *Host) newPebbleObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()

	// addEventListener(type: string, listener: function)
	//
	// Any value is accepted. One that turns out not to be callable is
	// reported when the event fires.
	addListener := func(call goja.FunctionCall) goja.Value {
		h.listeners.Add(call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	}
	_ = obj.Set("addEventListener", addListener)
	_ = obj.Set("on", addListener)

	// removeEventListener(type: string, listener: function)
	//
	// Removes every registration of listener for type.
	removeListener := func(call goja.FunctionCall) goja.Value {
		eventType := call.Argument(0).String()
		fn := call.Argument(1)
		h.listeners.RemoveFunc(eventType, func(v goja.Value) bool { return v.StrictEquals(fn) })
		return goja.Undefined()
	}
	_ = obj.Set("removeEventListener", removeListener)
	_ = obj.Set("off", removeListener)

	// sendAppMessage(message: object, ack?: function(e), nack?: function(e)): number
	//
	// e is {data: {transactionId}} for acks and additionally carries
	// error: {message} for nacks.
	_ = obj.Set("sendAppMessage", func(call goja.FunctionCall) goja.Value {
		payload, ok := call.Argument(0).Export().(map[string]any)
		if !ok {
			panic(vm.NewTypeError("sendAppMessage: message must be an object"))
		}
		ack, nack := call.Argument(1), call.Argument(2)
		txID, err := h.SendAppMessage(payload,
			func(r AckResult) { h.callback("ACK", ack, ackEvent(vm, r)) },
			func(r AckResult) { h.callback("NACK", nack, ackEvent(vm, r)) },
		)
		if err != nil {
			return goja.Undefined()
		}
		return vm.ToValue(txID)
	})

	// getTimelineToken(onSuccess?: function(token), onFailure?: function(message))
	_ = obj.Set("getTimelineToken", func(call goja.FunctionCall) goja.Value {
		ok, fail := call.Argument(0), call.Argument(1)
		_ = h.TimelineToken(h.stringCallback(vm, "timeline token", ok), h.stringCallback(vm, "timeline token failure", fail))
		return goja.Undefined()
	})

	// timelineSubscribe(topic: string, onSuccess?: function(ack), onFailure?: function(message))
	_ = obj.Set("timelineSubscribe", func(call goja.FunctionCall) goja.Value {
		topic := call.Argument(0).String()
		ok, fail := call.Argument(1), call.Argument(2)
		_ = h.Subscribe(topic, h.stringCallback(vm, "subscribe", ok), h.stringCallback(vm, "subscribe failure", fail))
		return goja.Undefined()
	})

	// timelineUnsubscribe(topic: string, onSuccess?: function(ack), onFailure?: function(message))
	_ = obj.Set("timelineUnsubscribe", func(call goja.FunctionCall) goja.Value {
		topic := call.Argument(0).String()
		ok, fail := call.Argument(1), call.Argument(2)
		_ = h.Unsubscribe(topic, h.stringCallback(vm, "unsubscribe", ok), h.stringCallback(vm, "unsubscribe failure", fail))
		return goja.Undefined()
	})

	// timelineSubscriptions(onSuccess?: function(topics: string[]), onFailure?: function(message))
	_ = obj.Set("timelineSubscriptions", func(call goja.FunctionCall) goja.Value {
		ok, fail := call.Argument(0), call.Argument(1)
		_ = h.ListSubscriptions(func(topics []string) {
			arr := make([]any, len(topics))
			for i, t := range topics {
				arr[i] = t
			}
			h.callback("subscriptions", ok, vm.NewArray(arr...))
		}, h.stringCallback(vm, "subscriptions failure", fail))
		return goja.Undefined()
	})

	// appGlanceReload(slices: object[], ack?: function(slices, {success}), nack?: function(slices, {success}))
	_ = obj.Set("appGlanceReload", func(call goja.FunctionCall) goja.Value {
		slicesArg := call.Argument(0)
		input, ok := slicesArg.Export().([]any)
		if !ok {
			panic(vm.NewTypeError("appGlanceReload: slices must be an array"))
		}
		slices, err := BuildGlanceSlices(input)
		if err != nil {
			panic(vm.NewTypeError("appGlanceReload: %s", err.Error()))
		}
		ack, nack := call.Argument(1), call.Argument(2)
		h.ReloadGlances(slices, func(success bool) {
			result := vm.NewObject()
			_ = result.Set("success", success)
			if success {
				h.callback("glance ACK", ack, slicesArg, result)
			} else {
				h.callback("glance NACK", nack, slicesArg, result)
			}
		})
		return goja.Undefined()
	})

	// getAccountToken(): string
	_ = obj.Set("getAccountToken", func(goja.FunctionCall) goja.Value {
		token, err := h.AccountToken()
		if err != nil {
			h.logger.Warn("failed to derive account token", "error", err)
		}
		return vm.ToValue(token)
	})

	// getWatchToken(): string
	_ = obj.Set("getWatchToken", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(h.WatchToken())
	})

	// getActiveWatchInfo(): {platform, model, language, firmware: {major, minor, patch, suffix}}
	_ = obj.Set("getActiveWatchInfo", func(goja.FunctionCall) goja.Value {
		info := h.WatchInfo()
		fw := vm.NewObject()
		_ = fw.Set("major", info.Firmware.Major)
		_ = fw.Set("minor", info.Firmware.Minor)
		_ = fw.Set("patch", info.Firmware.Patch)
		_ = fw.Set("suffix", info.Firmware.Suffix)
		out := vm.NewObject()
		_ = out.Set("platform", info.Platform)
		_ = out.Set("model", info.Model)
		_ = out.Set("language", info.Language)
		_ = out.Set("firmware", fw)
		return out
	})

	// showSimpleNotificationOnPebble(title: string, body: string)
	_ = obj.Set("showSimpleNotificationOnPebble", func(call goja.FunctionCall) goja.Value {
		h.ShowSimpleNotification(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})

	// openURL(url: string)
	_ = obj.Set("openURL", func(call goja.FunctionCall) goja.Value {
		h.OpenURL(call.Argument(0).String())
		return goja.Undefined()
	})

	return obj
}

func ackEvent(vm *goja.Runtime, r AckResult) *goja.Object {
	data := vm.NewObject()
	_ = data.Set("transactionId", r.TransactionID)
	event := vm.NewObject()
	_ = event.Set("data", data)
	if r.Error != "" {
		e := vm.NewObject()
		_ = e.Set("message", r.Error)
		_ = event.Set("error", e)
	}
	return event
}

// callback calls fn if it is a function, logging anything it throws.
func (h *Host) callback(what string, fn goja.Value, args ...goja.Value) {
	f, ok := goja.AssertFunction(fn)
	if !ok {
		return
	}
	if _, err := f(goja.Undefined(), args...); err != nil {
		h.logger.Warn("error while invoking "+what+" callback", "error", err)
	}
}

func (h *Host) stringCallback(vm *goja.Runtime, what string, fn goja.Value) func(string) {
	return func(s string) { h.callback(what, fn, vm.ToValue(s)) }
}
