// internal/composer/runtime.go
package composer

// 合成文档内嵌的两段运行时脚本。
// ctl是供组件脚本使用的时间线库：时间线是时刻t的纯函数，
// seek(t)可以以任意顺序、任意步长调用并得到一致的画面，
// 没有内部时钟，驱动权完全在场景运行时手里。

// ctlHelperJS 组件时间线库
const ctlHelperJS = `window.ctl = (function () {
  "use strict";

  var ease = {
    linear: function (p) { return p; },
    easeIn: function (p) { return p * p * p; },
    easeOut: function (p) { return 1 - Math.pow(1 - p, 3); },
    easeInOut: function (p) {
      return p < 0.5 ? 4 * p * p * p : 1 - Math.pow(-2 * p + 2, 3) / 2;
    },
    spring: function (p) {
      if (p <= 0) return 0;
      if (p >= 1) return 1;
      return 1 - Math.exp(-6 * p) * Math.cos(12 * p);
    }
  };

  function resolveEase(name) {
    return ease[name] || ease.linear;
  }

  // 每个元素的动画属性集中存放在 el.__ctl 上，
  // 一次seek内多个步骤写同一个元素时按步骤顺序覆盖，最后统一落到style
  function applyProps(el, props) {
    var state = el.__ctl || (el.__ctl = {});
    for (var key in props) {
      state[key] = props[key];
    }

    if ("opacity" in state) {
      el.style.opacity = state.opacity;
    }

    var transform = "";
    if ("x" in state || "y" in state) {
      transform += "translate(" + (state.x || 0) + "px, " + (state.y || 0) + "px)";
    }
    if ("scale" in state) {
      transform += " scale(" + state.scale + ")";
    }
    if ("rotate" in state) {
      transform += " rotate(" + state.rotate + "deg)";
    }
    if (transform !== "") {
      el.style.transform = transform;
    }
  }

  function progress(t, start, dur) {
    if (dur <= 0) {
      return t >= start ? 1 : 0;
    }
    var p = (t - start) / dur;
    if (p < 0) return 0;
    if (p > 1) return 1;
    return p;
  }

  function timeline() {
    var steps = [];
    var total = 0;

    var tl = {
      // add 声明一段属性补间
      // opts: { start, dur, from: {...}, to: {...}, ease }
      add: function (el, opts) {
        if (!el) return tl;
        steps.push({
          kind: "add",
          el: el,
          start: opts.start || 0,
          dur: opts.dur || 0,
          from: opts.from || {},
          to: opts.to || {},
          ease: resolveEase(opts.ease)
        });
        total = Math.max(total, (opts.start || 0) + (opts.dur || 0));
        return tl;
      },

      // tween 声明一段回调补间，回调收到已缓动前的线性进度p∈[0,1]
      // 回调必须只依赖p，这样任意seek顺序都能得到一致结果
      tween: function (start, dur, fn) {
        steps.push({ kind: "tween", start: start || 0, dur: dur || 0, fn: fn });
        total = Math.max(total, (start || 0) + (dur || 0));
        return tl;
      },

      // seek 把所有步骤推进到时刻t，t以场景开始为0
      seek: function (t) {
        for (var i = 0; i < steps.length; i++) {
          var step = steps[i];
          var p = progress(t, step.start, step.dur);
          if (step.kind === "tween") {
            step.fn(p);
            continue;
          }
          var eased = step.ease(p);
          var props = {};
          for (var key in step.to) {
            var from = key in step.from ? step.from[key] : 0;
            props[key] = from + (step.to[key] - from) * eased;
          }
          applyProps(step.el, props);
        }
        return tl;
      },

      duration: function () {
        return total;
      }
    };

    return tl;
  }

  return { timeline: timeline, ease: ease };
})();`

// sceneRuntimeJS 场景切换运行时
// 时间轴区间是左闭右开的 [start, end)，重叠时取文档顺序里的第一个；
// 每次时间更新都对活跃场景执行seek，所以往回跳转天然成立。
// 启动后的宽限窗口内强制展示第一个场景，避免宿主播放器
// 尚未发出第一条时间消息时黑屏
const sceneRuntimeJS = `(function () {
  "use strict";

  var GRACE_MS = 1200;

  var scenes = Array.prototype.slice.call(document.querySelectorAll(".ctl-scene"));
  var table = scenes.map(function (el) {
    return {
      el: el,
      start: parseFloat(el.getAttribute("data-start")),
      end: parseFloat(el.getAttribute("data-end"))
    };
  });

  var timelines = window.__ctlTimelines || {};
  var active = null;
  var ready = false;
  var bootedAt = (typeof performance !== "undefined" ? performance.now() : Date.now());

  function now() {
    return typeof performance !== "undefined" ? performance.now() : Date.now();
  }

  function inGrace() {
    return now() - bootedAt < GRACE_MS;
  }

  function show(entry) {
    entry.el.style.display = "block";
  }

  function hide(entry) {
    entry.el.style.display = "none";
  }

  function seekScene(entry, globalTime) {
    var tl = timelines[entry.el.id];
    if (!tl) return;
    try {
      tl.seek(globalTime - entry.start);
    } catch (err) {
      // 单个场景的脚本异常不能拖垮整条时间轴
      if (window.console) console.warn("scene seek failed:", entry.el.id, err);
    }
  }

  function findScene(t) {
    for (var i = 0; i < table.length; i++) {
      if (t >= table[i].start && t < table[i].end) {
        return table[i];
      }
    }
    return null;
  }

  function update(t) {
    var next = findScene(t);

    // 宽限窗口内即使时刻落在空档也保持第一个场景，避免启动瞬间闪黑
    if (next === null && inGrace() && table.length > 0) {
      next = table[0];
    }

    if (next === null) {
      if (active !== null) {
        hide(active);
        active = null;
      }
      return;
    }

    if (active !== next) {
      if (active !== null) hide(active);
      active = next;
      show(active);
    }
    seekScene(active, t);
  }

  function boot() {
    for (var i = 0; i < table.length; i++) {
      hide(table[i]);
    }
    ready = true;

    // 还没收到任何时间消息前先展示第一个场景的起始画面
    if (table.length > 0) {
      show(table[0]);
      active = table[0];
      seekScene(table[0], table[0].start);
    }
  }

  function handleMessage(msg) {
    if (!msg || typeof msg !== "object") return;
    if (!ready) return;

    switch (msg.type) {
      case "timeupdate":
        if (typeof msg.time === "number" && isFinite(msg.time)) {
          update(msg.time);
        }
        break;
      case "play":
      case "pause":
        // 时间线由seek驱动，播放状态对画面没有额外含义
        break;
    }
  }

  window.addEventListener("message", function (event) {
    handleMessage(event.data);
  });

  window.__ctlUpdate = update;
  window.__ctlHandleMessage = handleMessage;

  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", boot);
  } else {
    boot();
  }
})();`
